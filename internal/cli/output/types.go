package output

// RenderOutput is the JSON shape of an expanded template.
type RenderOutput struct {
	File string `json:"file"`
	SQL  string `json:"sql"`
}

// DirectiveInfo describes one directive found by check.
type DirectiveInfo struct {
	Kind   string `json:"kind"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Level  int    `json:"level"`
	Var    string `json:"var,omitempty"`
	List   string `json:"list,omitempty"`
	Items  int    `json:"items,omitempty"`
}

// CheckResult is the check outcome for a single template.
type CheckResult struct {
	File       string          `json:"file"`
	Valid      bool            `json:"valid"`
	Error      string          `json:"error,omitempty"`
	Loops      int             `json:"loops"`
	Depth      int             `json:"depth"`
	Directives []DirectiveInfo `json:"directives,omitempty"`
}

// BuildResult summarizes a batch render.
type BuildResult struct {
	ID       string            `json:"id"`
	Output   string            `json:"output_dir"`
	Rendered []string          `json:"rendered"`
	Failed   map[string]string `json:"failed,omitempty"`
}
