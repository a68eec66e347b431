package config

import (
	"fmt"
	"os"
	"strings"
)

var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.QueriesDir == "" {
		return fmt.Errorf("queries_dir is required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	for name, ext := range map[string]string{"template_ext": c.TemplateExt, "output_ext": c.OutputExt} {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%s must start with '.', got %q", name, ext)
		}
	}
	if c.TemplateExt == c.OutputExt {
		return fmt.Errorf("template_ext and output_ext must differ (both %q)", c.TemplateExt)
	}
	if c.OutputFormat != "" && !contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (want one of %s)", c.OutputFormat, strings.Join(validOutputs, ", "))
	}
	return nil
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.QueriesDir); os.IsNotExist(err) {
		return fmt.Errorf("queries directory does not exist: %s\nHint: Create the directory or use --queries-dir to specify a different path", c.QueriesDir)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
