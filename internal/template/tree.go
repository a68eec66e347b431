package template

// Resolve assigns nesting levels to directives (already ordered by offset)
// and pairs every 'for' with its 'end', building the loop forest.
//
// A 'for' takes the current depth and opens a level; an 'end' closes a level
// and takes the depth it returns to. An 'end' with nothing open, or a 'for'
// still open at the end of input, is an UnmatchedBlockError.
func Resolve(directives []*Directive) ([]*Loop, error) {
	var roots []*Loop
	var stack []*Loop

	for _, d := range directives {
		switch d.Kind {
		case DirectiveFor:
			d.Level = len(stack)
			stack = append(stack, &Loop{Start: d})

		case DirectiveEnd:
			if len(stack) == 0 {
				return nil, NewUnmatchedBlockError(d.Pos, DirectiveEnd)
			}
			loop := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			d.Level = len(stack)
			loop.End = d

			if len(stack) == 0 {
				roots = append(roots, loop)
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, loop)
			}

		default:
			return nil, NewParseErrorf(d.Pos, "unknown directive kind: %s", d.Kind)
		}
	}

	if len(stack) > 0 {
		return nil, NewUnmatchedBlockError(stack[len(stack)-1].Start.Pos, DirectiveFor)
	}

	return roots, nil
}

// parseLists parses the list literal of every loop in the forest.
func parseLists(loops []*Loop) error {
	for _, l := range loops {
		items, err := ParseList(l.Start.ListText)
		if err != nil {
			return NewLiteralError(l.Start.Pos, l.Start.ListText, "invalid list literal", err)
		}
		l.Items = items
		if err := parseLists(l.Children); err != nil {
			return err
		}
	}
	return nil
}

// Analyze substitutes vars into input, then scans, resolves and parses
// every directive without expanding anything. All syntax errors surface here.
func Analyze(input, file string, vars Vars) (*Tree, error) {
	text := Substitute(input, vars)
	tree := &Tree{File: file, Text: text}
	if !hasDirective(text) {
		return tree, nil
	}

	directives, err := Scan(text, file)
	if err != nil {
		return nil, err
	}

	loops, err := Resolve(directives)
	if err != nil {
		return nil, err
	}

	if err := parseLists(loops); err != nil {
		return nil, err
	}

	tree.Directives = directives
	tree.Loops = loops
	return tree, nil
}
