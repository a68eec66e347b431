// Package config provides configuration management for the LoopSQL CLI.
//
// Configuration is layered with koanf: built-in defaults, then loopsql.yaml,
// then LOOPSQL_* environment variables, then explicitly set flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	QueriesDir   string         `koanf:"queries_dir"`
	OutputDir    string         `koanf:"output_dir"`
	TemplateExt  string         `koanf:"template_ext"`
	OutputExt    string         `koanf:"output_ext"`
	Vars         map[string]any `koanf:"vars"`
	VarsFiles    []string       `koanf:"vars_files"`
	Concurrency  int            `koanf:"concurrency"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`

	// Set by the loader, not read from config sources.
	ProjectRoot string   `koanf:"-"`
	Pairs       []string `koanf:"-"` // key=value bindings from --var
}

// Default configuration values.
const (
	DefaultQueriesDir  = "queries"
	DefaultOutputDir   = "build"
	DefaultTemplateExt = ".tsql"
	DefaultOutputExt   = ".sql"
	DefaultConcurrency = 4
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Config file names searched for, in order.
var configFileNames = []string{"loopsql.yaml", "loopsql.yml"}

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "LOOPSQL_"
