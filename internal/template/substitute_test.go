package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	row := map[string]any{"name": "id", "width": 8}

	tests := []struct {
		name     string
		input    string
		vars     Vars
		expected string
	}{
		{"bound", "SELECT {col} FROM {tbl}", Vars{"col": "ra", "tbl": "stack"}, "SELECT ra FROM stack"},
		{"unbound kept with braces", "{a} {b}", Vars{"a": "x"}, "x {b}"},
		{"repeated", "{f}{f}", Vars{"f": "g"}, "gg"},
		{"mapping selector", "{row[name]}:{row[width]}", Vars{"row": row}, "id:8"},
		{"missing key kept", "{row[nope]}", Vars{"row": row}, "{row[nope]}"},
		{"list selector", "{p[1]}", Vars{"p": []any{"a", "b"}}, "b"},
		{"list out of range kept", "{p[5]}", Vars{"p": []any{"a"}}, "{p[5]}"},
		{"nested selectors", "{m[xs][0]}", Vars{"m": map[string]any{"xs": []any{7}}}, "7"},
		{"selector on scalar kept", "{s[0]}", Vars{"s": "str"}, "{s[0]}"},
		{"value is not rescanned", "{a}", Vars{"a": "{b}", "b": "no"}, "{b}"},
		{"bool and nil", "{t} {n}", Vars{"t": true, "n": nil}, "true null"},
		{"list value", "{xs}", Vars{"xs": []any{1, "two"}}, "[1, two]"},
		{"map value", "{m}", Vars{"m": map[string]any{"a": 1}}, "{a: 1}"},
		{"date", "{d}", Vars{"d": time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)}, "2019-05-01"},
		{"whole float keeps decimal point", "x / {r}", Vars{"r": 1.0}, "x / 1.0"},
		{"large float", "{f}", Vars{"f": 1e21}, "1e+21"},
		{"format spec is not a token", "{x:>5}", Vars{"x": 1}, "{x:>5}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Substitute(tt.input, tt.vars))
		})
	}
}

func TestSubstitute_Idempotent(t *testing.T) {
	vars := Vars{"ra": 150.1, "dec": 2.2, "r": 0.5}
	input := "SELECT * FROM fGetNearbyObjEq({ra}, {dec}, {r}) WHERE {unbound}"

	once := Substitute(input, vars)
	twice := Substitute(once, vars)
	assert.Equal(t, once, twice)
	assert.Equal(t, "SELECT * FROM fGetNearbyObjEq(150.1, 2.2, 0.5) WHERE {unbound}", once)
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []any
		wantErr string
	}{
		{"ints", "[1, 2, 3]", []any{1, 2, 3}, ""},
		{"words", "[g, r, i, z, y]", []any{"g", "r", "i", "z", "y"}, ""},
		{"quoted", `["a b", 'c']`, []any{"a b", "c"}, ""},
		{"floats", "[0.5, 2.25]", []any{0.5, 2.25}, ""},
		{"mappings", "[{a: 1}, {a: 2}]", []any{map[string]any{"a": 1}, map[string]any{"a": 2}}, ""},
		{"empty", "[]", []any{}, ""},
		{"blank", "", nil, "empty list literal"},
		{"scalar", "42", nil, "expected a list, got int"},
		{"broken", "[1, 2", nil, "yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseList(tt.text)
			if tt.wantErr != "" {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErr)
				}
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatValue_Floats(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.0, "1.0"},
		{-3, "-3.0"},
		{2.5, "2.5"},
		{0.1, "0.1"},
		{1e21, "1e+21"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}
