package template

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	// loopStartRe captures indentation, loop variable and list text.
	// The list may span lines but never contains "--"; single dashes
	// (negative numbers) are allowed. Whitespace after the closing "--"
	// belongs to the directive.
	loopStartRe = regexp.MustCompile(`(\s*)--\s*for\s+(\w+)\s+in\s+((?:[^-]|-[^-])*?)\s*--\s*`)
	endRe       = regexp.MustCompile(`--\s*end\s*--`)
)

// Scanner finds loop directives in a template.
type Scanner struct {
	input string
	file  string
	lines []int // byte offsets at which each line starts
}

// NewScanner creates a new scanner for the given input.
func NewScanner(input, file string) *Scanner {
	lines := []int{0}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Scanner{input: input, file: file, lines: lines}
}

// Scan returns all directives ordered by starting offset.
// Directives need not occupy a whole line; overlapping matches are rejected.
func (s *Scanner) Scan() ([]*Directive, error) {
	var directives []*Directive

	for _, m := range loopStartRe.FindAllStringSubmatchIndex(s.input, -1) {
		indent := s.input[m[2]:m[3]]
		directives = append(directives, &Directive{
			Kind:     DirectiveFor,
			Span:     Span{Beg: m[0], End: m[1]},
			Pos:      s.position(m[3]), // point at "--", not the indentation
			Indent:   indent,
			VarName:  s.input[m[4]:m[5]],
			ListText: s.input[m[6]:m[7]],
		})
	}

	for _, m := range endRe.FindAllStringIndex(s.input, -1) {
		directives = append(directives, &Directive{
			Kind: DirectiveEnd,
			Span: Span{Beg: m[0], End: m[1]},
			Pos:  s.position(m[0]),
		})
	}

	sort.SliceStable(directives, func(i, j int) bool {
		return directives[i].Span.Beg < directives[j].Span.Beg
	})

	for i := 1; i < len(directives); i++ {
		prev, cur := directives[i-1], directives[i]
		if cur.Span.Beg < prev.Span.End {
			return nil, NewParseErrorf(cur.Pos, "'%s' directive overlaps '%s' directive at %d:%d",
				cur.Kind, prev.Kind, prev.Pos.Line, prev.Pos.Column)
		}
	}

	return directives, nil
}

// position converts a byte offset into a 1-based line/column position.
func (s *Scanner) position(offset int) Position {
	line := sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > offset }) - 1
	col := utf8.RuneCountInString(s.input[s.lines[line]:offset]) + 1
	return Position{File: s.file, Line: line + 1, Column: col}
}

// Scan is a convenience wrapper around NewScanner(input, file).Scan().
func Scan(input, file string) ([]*Directive, error) {
	return NewScanner(input, file).Scan()
}

// hasDirective reports whether text looks like it contains a directive at all.
func hasDirective(text string) bool {
	return strings.Contains(text, "--")
}
