package bindings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/loopsql/internal/template"
	"go.starlark.net/starlark"
)

// LoadStarlarkFile executes a Starlark file and returns its exported globals
// (names not starting with _) as bindings. Functions are skipped; they may be
// used by the file itself to compute values.
func LoadStarlarkFile(path string) (template.Vars, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: vars files are user-supplied by design
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	thread := &starlark.Thread{
		Name: fmt.Sprintf("vars:%s", filepath.Base(path)),
		Print: func(_ *starlark.Thread, _ string) {
			// Ignore prints while loading vars
		},
	}

	globals, err := starlark.ExecFile(thread, path, content, nil) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}

	vars := make(template.Vars, len(globals))
	for name, value := range globals {
		if strings.HasPrefix(name, "_") {
			continue
		}
		if _, ok := value.(starlark.Callable); ok {
			continue
		}
		v, err := FromStarlark(value)
		if err != nil {
			return nil, &LoadError{File: path, Message: fmt.Sprintf("%s: %v", name, err)}
		}
		vars[name] = v
	}
	return vars, nil
}

// FromStarlark converts a Starlark value into the plain Go values templates bind.
func FromStarlark(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return i, nil
		}
		return val.String(), nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		return indexableToSlice(val)
	case starlark.Tuple:
		return indexableToSlice(val)
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings, got %s", item[0].Type())
			}
			elem, err := FromStarlark(item[1])
			if err != nil {
				return nil, err
			}
			out[string(key)] = elem
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", v.Type())
	}
}

func indexableToSlice(seq starlark.Indexable) ([]any, error) {
	out := make([]any, seq.Len())
	for i := range out {
		elem, err := FromStarlark(seq.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = elem
	}
	return out, nil
}
