package commands

import (
	"fmt"

	"github.com/leapstack-labs/loopsql/internal/cli/output"
	"github.com/leapstack-labs/loopsql/internal/template"
	"github.com/spf13/cobra"
)

// NewExpandCommand creates the expand command.
func NewExpandCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expand [file|-]",
		Short: "Expand a single template and print the SQL",
		Long: `Expand placeholders and loop directives in one template and print the result.

Reads from stdin when the file is "-" or omitted.

Output adapts to environment:
  - Terminal: Plain SQL
  - Piped/Scripted: Markdown with code block`,
		Example: `  # Expand a template with a binding
  loopsql expand queries/stars.tsql --var bands='[g, r, i]'

  # Expand from stdin
  echo 'SELECT {col} FROM t' | loopsql expand -s col=ra

  # Expand as JSON
  loopsql expand queries/stars.tsql --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runExpand(cmd, path)
		},
	}

	return cmd
}

func runExpand(cmd *cobra.Command, path string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	vars, err := cmdCtx.LoadVars()
	if err != nil {
		return err
	}

	content, name, err := readTemplate(cmd, path)
	if err != nil {
		return err
	}

	expander := template.NewExpander(template.WithLogger(cmdCtx.Logger))
	sql, err := expander.Render(content, name, vars)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(output.RenderOutput{File: name, SQL: sql})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Expanded SQL: %s", name)))
		r.Println("")
		r.Println(output.FormatCodeBlock("sql", sql))
	default:
		r.Println(sql)
	}

	return nil
}
