package template

import (
	"log/slog"
	"regexp"
	"strings"
)

// trailingRe matches one optional comma followed by trailing whitespace.
var trailingRe = regexp.MustCompile(`(,?)\s+$`)

// Expander unrolls loop directives. The zero value is not usable; use NewExpander.
type Expander struct {
	logger *slog.Logger
}

// Option configures an Expander.
type Option func(*Expander)

// WithLogger sets the structured logger used for debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExpander creates an Expander. Without options it logs nowhere.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExpander = NewExpander()

// Expand substitutes vars into input and unrolls every loop.
// Unbound placeholders are left as {name} for a later pass.
func Expand(input string, vars Vars) (string, error) {
	return defaultExpander.Render(input, "", vars)
}

// RenderString is Expand with a file name reported in error positions.
func RenderString(input, file string, vars Vars) (string, error) {
	return defaultExpander.Render(input, file, vars)
}

// Render analyzes and expands input. Nothing is produced unless the whole
// template is valid.
func (e *Expander) Render(input, file string, vars Vars) (string, error) {
	tree, err := Analyze(input, file, vars)
	if err != nil {
		return "", err
	}
	return e.ExpandTree(tree), nil
}

// ExpandTree expands an analyzed template.
func (e *Expander) ExpandTree(tree *Tree) string {
	if len(tree.Loops) == 0 {
		return tree.Text
	}
	e.logger.Debug("expanding template", "file", tree.File, "loops", len(tree.Loops), "depth", tree.Depth())
	return e.expand(tree.Text, tree.Loops, 0, len(tree.Text), 0)
}

// expand renders text[beg:end] with the given loops, all of which sit at level.
func (e *Expander) expand(text string, loops []*Loop, beg, end, level int) string {
	if len(loops) == 0 {
		return text[beg:end]
	}

	var b strings.Builder
	cur := beg
	for _, loop := range loops {
		b.WriteString(text[cur:loop.Start.Span.Beg])

		body := loop.Body()
		expanded := e.expand(text, loop.Children, body.Beg, body.End, level+1)
		trimmed, hadComma := trimBody(expanded)

		e.logger.Debug("unrolling loop",
			"var", loop.Start.VarName,
			"items", len(loop.Items),
			"level", level,
			"line", loop.Start.Pos.Line,
			"trailing_comma", hadComma,
		)

		n := len(loop.Items)
		for i, item := range loop.Items {
			b.WriteString(loop.Start.Indent)
			b.WriteString(Substitute(trimmed, Vars{loop.Start.VarName: item}))
			// Inner levels keep the comma on their last item: the enclosing
			// loop's next repetition still follows.
			if i < n-1 || level > 0 {
				b.WriteByte(',')
			}
		}

		cur = loop.End.Span.End
	}
	b.WriteString(text[cur:end])
	return b.String()
}

// trimBody strips a trailing run of whitespace, and a comma directly before
// it, reporting whether the comma was there.
func trimBody(body string) (string, bool) {
	m := trailingRe.FindStringSubmatchIndex(body)
	if m == nil {
		return body, false
	}
	return body[:m[0]], m[3] > m[2]
}
