package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/loopsql/internal/cli/config"
)

// generateSchemaDocs generates the configuration reference.
func generateSchemaDocs(outDir string) error {
	log.Printf("Generating schema docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	return nil
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
}

// getConfigSchema returns the loopsql.yaml keys, mirroring config.Config.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Name: "queries_dir", Type: "string", Default: config.DefaultQueriesDir, Description: "Directory searched for templates"},
		{Name: "output_dir", Type: "string", Default: config.DefaultOutputDir, Description: "Directory rendered SQL is written to"},
		{Name: "template_ext", Type: "string", Default: config.DefaultTemplateExt, Description: "Extension of template files"},
		{Name: "output_ext", Type: "string", Default: config.DefaultOutputExt, Description: "Extension of rendered files"},
		{Name: "vars", Type: "map[string]any", Description: "Placeholder bindings"},
		{Name: "vars_files", Type: "[]string", Description: "YAML (.yaml, .yml) or Starlark (.star) files with more bindings"},
		{Name: "concurrency", Type: "int", Default: fmt.Sprint(config.DefaultConcurrency), Description: "Templates rendered in parallel"},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Debug logging on stderr"},
		{Name: "output", Type: "string", Default: config.DefaultOutput, Description: "Output format: auto, text, markdown, json"},
	}
}

// generateConfigurationDoc generates the configuration reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "LoopSQL configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("LoopSQL is configured via `loopsql.yaml`, found in the working directory or any parent. " +
		"Relative paths resolve against the directory holding the config file.")

	headers := []string{"Field", "Type", "Default", "Description"}
	var rows [][]string
	for _, f := range getConfigSchema() {
		defVal := f.Default
		if defVal == "" {
			defVal = "-"
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, InlineCode(defVal), f.Description})
	}
	w.Table(headers, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `queries_dir: queries
output_dir: build
concurrency: 8
vars:
  table: panstarrs.stack
  bands: [g, r, i, z, y]
vars_files:
  - vars/common.yaml
  - vars/columns.star`)

	w.Header(2, "Precedence")
	w.Paragraph("Command-line flags override `LOOPSQL_*` environment variables, which override the config file, which overrides the defaults above. " +
		"Bindings merge in order: `vars`, each vars file, then `--var` pairs; later values win.")

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}
