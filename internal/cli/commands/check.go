package commands

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/loopsql/internal/cli/output"
	"github.com/leapstack-labs/loopsql/internal/template"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Validate templates without rendering them",
		Long: `Check that templates are well formed: every loop is closed, no end
directive is stray, and every list literal parses.

With no arguments, every template under the queries directory is checked.
Prints the directives found in each template and exits non-zero when any
template is invalid.`,
		Example: `  # Check every template in the project
  loopsql check

  # Check specific files
  loopsql check queries/stars.tsql queries/galaxies.tsql

  # Machine-readable results
  loopsql check --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}

	return cmd
}

func runCheck(cmd *cobra.Command, files []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	vars, err := cmdCtx.LoadVars()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		rels, err := cmdCtx.NewBatchRenderer(1).Discover()
		if err != nil {
			return err
		}
		for _, rel := range rels {
			files = append(files, filepath.Join(cmdCtx.Cfg.QueriesDir, rel))
		}
	}
	if len(files) == 0 {
		r.Warning(fmt.Sprintf("no templates found in %s", cmdCtx.Cfg.QueriesDir))
		return nil
	}

	results := make([]output.CheckResult, 0, len(files))
	invalid := 0
	for _, file := range files {
		res := checkFile(cmd, file, vars)
		if !res.Valid {
			invalid++
		}
		cmdCtx.Logger.Debug("checked template", "file", file, "valid", res.Valid, "loops", res.Loops)
		results = append(results, res)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(results); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderCheckMarkdown(r, results)
	default:
		renderCheckText(r, results)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d templates invalid", invalid, len(results))
	}
	return nil
}

// checkFile analyzes a single template into a CheckResult.
func checkFile(cmd *cobra.Command, path string, vars template.Vars) output.CheckResult {
	res := output.CheckResult{File: path}

	content, name, err := readTemplate(cmd, path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	tree, err := template.Analyze(content, name, vars)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Valid = true
	res.Depth = tree.Depth()
	res.Directives = directiveInfos(tree)
	for _, d := range tree.Directives {
		if d.Kind == template.DirectiveFor {
			res.Loops++
		}
	}
	return res
}

// directiveInfos flattens a tree's directives, attaching item counts to loop starts.
func directiveInfos(tree *template.Tree) []output.DirectiveInfo {
	items := make(map[*template.Directive]int)
	var walk func(loops []*template.Loop)
	walk = func(loops []*template.Loop) {
		for _, l := range loops {
			items[l.Start] = len(l.Items)
			walk(l.Children)
		}
	}
	walk(tree.Loops)

	infos := make([]output.DirectiveInfo, 0, len(tree.Directives))
	for _, d := range tree.Directives {
		infos = append(infos, output.DirectiveInfo{
			Kind:   d.Kind.String(),
			Line:   d.Pos.Line,
			Column: d.Pos.Column,
			Level:  d.Level,
			Var:    d.VarName,
			List:   d.ListText,
			Items:  items[d],
		})
	}
	return infos
}

func directiveTable(infos []output.DirectiveInfo) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Var", "List", "Items", "Level", "Position"})
	titleCaser := cases.Title(language.English)
	for _, d := range infos {
		itemCount := ""
		if d.Kind == template.DirectiveFor.String() {
			itemCount = strconv.Itoa(d.Items)
		}
		t.AppendRow(table.Row{titleCaser.String(d.Kind), d.Var, d.List, itemCount, d.Level, fmt.Sprintf("%d:%d", d.Line, d.Column)})
	}
	return t
}

func checkStatus(res output.CheckResult) string {
	if res.Valid {
		return "Valid"
	}
	return "Invalid"
}

func renderCheckText(r *output.Renderer, results []output.CheckResult) {
	styles := r.Styles()
	for i, res := range results {
		if i > 0 {
			r.Println("")
		}
		if !res.Valid {
			r.Println(styles.StatusFailed.String() + " " + styles.Bold.Render(res.File))
			r.Println("  " + styles.Error.Render(res.Error))
			continue
		}
		r.Println(fmt.Sprintf("%s %s %s",
			styles.StatusSuccess.String(),
			styles.Bold.Render(res.File),
			styles.Muted.Render(fmt.Sprintf("(%d loops, depth %d)", res.Loops, res.Depth))))
		if len(res.Directives) > 0 {
			r.Println(directiveTable(res.Directives).Render())
		}
	}
}

func renderCheckMarkdown(r *output.Renderer, results []output.CheckResult) {
	r.Println(output.FormatHeader(1, "Template Check"))
	for _, res := range results {
		r.Println("")
		r.Println(output.FormatHeader(2, res.File))
		r.Println("")
		r.Println(output.FormatKeyValue("Status", checkStatus(res)))
		if !res.Valid {
			r.Println(output.FormatKeyValue("Error", res.Error))
			continue
		}
		r.Println(output.FormatKeyValue("Loops", strconv.Itoa(res.Loops)))
		r.Println(output.FormatKeyValue("Depth", strconv.Itoa(res.Depth)))
		if len(res.Directives) > 0 {
			r.Println("")
			r.Println(directiveTable(res.Directives).RenderMarkdown())
		}
	}
}
