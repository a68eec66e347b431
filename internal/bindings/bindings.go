// Package bindings builds placeholder bindings for templates from vars files
// (YAML or Starlark) and key=value pairs given on the command line.
package bindings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/loopsql/internal/template"
	"gopkg.in/yaml.v3"
)

// LoadFile loads bindings from a vars file, choosing the format by extension.
func LoadFile(path string) (template.Vars, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return LoadYAMLFile(path)
	case ".star":
		return LoadStarlarkFile(path)
	default:
		return nil, &LoadError{File: path, Message: fmt.Sprintf("unsupported vars file extension %q", ext)}
	}
}

// LoadYAMLFile reads a YAML file whose top level is a mapping of names to values.
func LoadYAMLFile(path string) (template.Vars, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: vars files are user-supplied by design
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	var vars map[string]any
	if err := yaml.Unmarshal(content, &vars); err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if vars == nil {
		vars = map[string]any{}
	}
	return template.Vars(vars), nil
}

// ParsePairs parses key=value pairs. Values are read as YAML, so numbers,
// booleans and flow lists like [g, r] keep their type; anything that does
// not parse is taken as a plain string.
func ParsePairs(pairs []string) (template.Vars, error) {
	vars := make(template.Vars, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid binding %q: expected key=value", pair)
		}
		vars[key] = parseValue(raw)
	}
	return vars, nil
}

func parseValue(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	// a mapping here is almost always an unquoted string with a colon in it
	if _, isMap := v.(map[string]any); isMap {
		return raw
	}
	return v
}

// Merge combines binding sets; later sets override earlier ones.
func Merge(sets ...template.Vars) template.Vars {
	merged := make(template.Vars)
	for _, set := range sets {
		for k, v := range set {
			merged[k] = v
		}
	}
	return merged
}

// Load merges, in order: base, each vars file, then key=value pairs.
func Load(base map[string]any, files, pairs []string) (template.Vars, error) {
	sets := []template.Vars{template.Vars(base)}

	for _, file := range files {
		vars, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		sets = append(sets, vars)
	}

	fromPairs, err := ParsePairs(pairs)
	if err != nil {
		return nil, err
	}
	sets = append(sets, fromPairs)

	return Merge(sets...), nil
}

// LoadError represents an error loading a vars file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}
