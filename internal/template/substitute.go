package template

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// placeholderRe matches {name} with optional [key] selectors, e.g. {row[band]}.
	placeholderRe = regexp.MustCompile(`\{(\w+)((?:\[[^\[\]{}]+\])*)\}`)
	selectorRe    = regexp.MustCompile(`\[([^\[\]{}]+)\]`)
)

// Substitute replaces every {name} whose name is bound in vars with the
// formatted value. Unbound names, and selectors that do not resolve, are
// left verbatim so a later pass can fill them in. Substituted values are
// not rescanned.
func Substitute(text string, vars Vars) string {
	if len(vars) == 0 || !strings.Contains(text, "{") {
		return text
	}

	matches := placeholderRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		v, ok := vars[text[m[2]:m[3]]]
		if ok {
			v, ok = selectPath(v, text[m[4]:m[5]])
		}
		if !ok {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(FormatValue(v))
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// selectPath applies a chain of [key] selectors to v.
func selectPath(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	for _, sel := range selectorRe.FindAllStringSubmatch(path, -1) {
		var ok bool
		if v, ok = selectOne(v, sel[1]); !ok {
			return nil, false
		}
	}
	return v, true
}

func selectOne(v any, key string) (any, bool) {
	switch c := v.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case map[any]any:
		if val, ok := c[key]; ok {
			return val, true
		}
		if n, err := strconv.Atoi(key); err == nil {
			val, ok := c[n]
			return val, ok
		}
		return nil, false
	case []any:
		n, err := strconv.Atoi(key)
		if err != nil || n < 0 || n >= len(c) {
			return nil, false
		}
		return c[n], true
	default:
		return nil, false
	}
}
