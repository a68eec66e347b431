// Package template expands loop directives in SQL query templates.
// It supports {name} placeholders and "-- for x in [...] --" / "-- end --" blocks.
package template

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// Vars binds placeholder names to values.
type Vars map[string]any

// DirectiveKind identifies the type of loop directive.
type DirectiveKind int

// DirectiveKind constants for loop directive types.
const (
	DirectiveUnknown DirectiveKind = iota // Unknown/invalid directive
	DirectiveFor                          // -- for x in [...] --
	DirectiveEnd                          // -- end --
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveFor:
		return "for"
	case DirectiveEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Span is a half-open byte range [Beg, End) in the scanned text.
type Span struct {
	Beg int
	End int
}

// Directive is a single loop-start or end marker found in a template.
type Directive struct {
	Kind  DirectiveKind
	Span  Span
	Pos   Position
	Level int // Nesting depth, set by Resolve

	// Loop-start only
	Indent   string // Whitespace captured immediately before the directive
	VarName  string // Loop variable name
	ListText string // Raw list literal, parsed later
}

// Loop is a matched for/end pair with the loops nested inside its body.
type Loop struct {
	Start    *Directive
	End      *Directive
	Items    []any // Parsed list literal
	Children []*Loop
}

// Body returns the span between the loop's start and end directives.
func (l *Loop) Body() Span {
	return Span{Beg: l.Start.Span.End, End: l.End.Span.Beg}
}

// Tree is the analyzed form of a template: the substituted text,
// its directives in positional order, and the top-level loops.
type Tree struct {
	File       string
	Text       string
	Directives []*Directive
	Loops      []*Loop
}

// Depth returns the deepest nesting level in the tree (0 when there are no loops).
func (t *Tree) Depth() int {
	var walk func(loops []*Loop) int
	walk = func(loops []*Loop) int {
		deepest := 0
		for _, l := range loops {
			if d := 1 + walk(l.Children); d > deepest {
				deepest = d
			}
		}
		return deepest
	}
	return walk(t.Loops)
}
