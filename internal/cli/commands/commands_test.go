package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/loopsql/internal/cli/config"
	"github.com/leapstack-labs/loopsql/internal/cli/output"
	"github.com/leapstack-labs/loopsql/internal/cli/testutil"
	"github.com/leapstack-labs/loopsql/internal/render"
	"github.com/leapstack-labs/loopsql/internal/template"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes cmd with no loaded config, so defaults rooted at the
// working directory apply and output mode is auto (markdown for buffers).
func runCommand(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Chdir(t.TempDir())

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewExpandCommand(t *testing.T) {
	cmd := NewExpandCommand()

	assert.Equal(t, "expand [file|-]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
}

func TestNewCheckCommand(t *testing.T) {
	cmd := NewCheckCommand()

	assert.Equal(t, "check [files...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
}

func TestNewRenderCommand(t *testing.T) {
	cmd := NewRenderCommand()

	assert.Equal(t, "render", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	flags := []string{"watch", "concurrency"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestExpandCommand_StdinMarkdown(t *testing.T) {
	out, _, err := runCommand(t, NewExpandCommand(), "SELECT\n  -- for x in [1, 2] --\n  c{x}\n  -- end --\nFROM t")
	require.NoError(t, err)

	assert.Equal(t, "# Expanded SQL: <stdin>\n\n```sql\nSELECT\n  c1,\n  c2\nFROM t\n```\n", out)
}

func TestExpandCommand_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.tsql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0600))

	out, _, err := runCommand(t, NewExpandCommand(), "", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# Expanded SQL: "+path)
}

func TestExpandCommand_SyntaxError(t *testing.T) {
	out, _, err := runCommand(t, NewExpandCommand(), "-- for x in [1] --\n{x}", "-")
	require.Error(t, err)
	assert.ErrorIs(t, err, template.ErrSyntax)
	assert.Contains(t, err.Error(), "<stdin>:1:1")
	assert.Empty(t, out, "no partial output on error")
}

func TestCheckCommand_Files(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.tsql")
	bad := filepath.Join(dir, "bad.tsql")
	require.NoError(t, os.WriteFile(good, []byte("-- for b in [g, r] --\n  -- for n in [1, 2] --\n  {b}{n}\n  -- end --\n-- end --"), 0600))
	require.NoError(t, os.WriteFile(bad, []byte("SELECT 1\n-- end --"), 0600))

	out, _, err := runCommand(t, NewCheckCommand(), "", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 templates invalid")

	assert.Contains(t, out, "# Template Check")
	assert.Contains(t, out, "Status: Valid")
	assert.Contains(t, out, "Status: Invalid")
	assert.Contains(t, out, "Depth: 2")
	assert.Contains(t, out, "| For | b | [g, r] | 2 | 0 | 1:1 |")
	assert.Contains(t, out, "| End |")
}

func TestCheckCommand_NoTemplates(t *testing.T) {
	config.ResetConfig()
	t.Chdir(t.TempDir())
	require.NoError(t, os.Mkdir("queries", 0750))

	cmd := NewCheckCommand()
	errOut := &bytes.Buffer{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(errOut)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "no templates found")
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.tsql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT\n  -- for c in {cols} --\n  {c}\n  -- end --\nFROM t"), 0600))

	res := checkFile(NewCheckCommand(), path, template.Vars{"cols": []any{"ra", "dec", "mag"}})
	require.True(t, res.Valid, res.Error)
	assert.Equal(t, 1, res.Loops)
	assert.Equal(t, 1, res.Depth)
	require.Len(t, res.Directives, 2)

	start := res.Directives[0]
	assert.Equal(t, "for", start.Kind)
	assert.Equal(t, "c", start.Var)
	assert.Equal(t, "[ra, dec, mag]", start.List)
	assert.Equal(t, 3, start.Items)
	assert.Equal(t, 2, start.Line)
	assert.Equal(t, "end", res.Directives[1].Kind)

	res = checkFile(NewCheckCommand(), filepath.Join(dir, "missing.tsql"), nil)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Error, "failed to read template")
}

func TestRenderCommand_JSON(t *testing.T) {
	config.ResetConfig()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "queries"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "queries", "q.tsql"), []byte("SELECT {x} FROM {tbl}"), 0600))
	cfgPath := filepath.Join(root, "loopsql.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output: json\nvars:\n  x: 42\n  tbl: stack\n"), 0600))

	_, err := config.LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	cmd := NewRenderCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	var build output.BuildResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &build))
	assert.Equal(t, []string{"q.tsql"}, build.Rendered)
	assert.Equal(t, filepath.Join(root, "build"), build.Output)
	assert.NotEmpty(t, build.ID)
	assert.Empty(t, build.Failed)

	sql, err := os.ReadFile(filepath.Join(root, "build", "q.sql")) //nolint:gosec // test fixture path
	require.NoError(t, err)
	assert.Equal(t, "SELECT 42 FROM stack\n", string(sql))
}

func TestRenderCommand_Failures(t *testing.T) {
	config.ResetConfig()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "queries"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "queries", "bad.tsql"), []byte("-- end --"), 0600))
	cfgPath := filepath.Join(root, "loopsql.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output: text\n"), 0600))

	_, err := config.LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	cmd := NewRenderCommand()
	errOut := &bytes.Buffer{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(errOut)
	cmd.SetArgs(nil)

	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 templates failed to render")
	assert.Contains(t, errOut.String(), "bad.tsql")
}

func TestRenderCheck_TextAndMarkdown(t *testing.T) {
	results := []output.CheckResult{
		{
			File: "stars.tsql", Valid: true, Loops: 1, Depth: 1,
			Directives: []output.DirectiveInfo{
				{Kind: "for", Line: 3, Column: 3, Var: "b", List: "[g, r]", Items: 2},
				{Kind: "end", Line: 5, Column: 3},
			},
		},
		{File: "bad.tsql", Error: "bad.tsql:1:1: 'end' without matching 'for'"},
	}

	text := testutil.NewTestRendererText()
	renderCheckText(text.Renderer, results)
	testutil.AssertNoANSI(t, text.Output())
	assert.Contains(t, text.Output(), "✓ stars.tsql (1 loops, depth 1)")
	assert.Contains(t, text.Output(), "✗ bad.tsql")
	assert.Contains(t, text.Output(), "[g, r]")

	md := testutil.NewTestRendererMarkdown()
	renderCheckMarkdown(md.Renderer, results)
	testutil.AssertValidMarkdown(t, md.Output())
	assert.Contains(t, md.Output(), "## stars.tsql")
	assert.Contains(t, md.Output(), "Error: bad.tsql:1:1")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestReportBuild_WriteError(t *testing.T) {
	r := output.NewRendererWithTTY(failingWriter{}, &bytes.Buffer{}, false, output.ModeJSON)
	err := reportBuild(r, "build", &render.Result{ID: "b1", Rendered: []string{"a.tsql"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write build result")
	assert.Contains(t, err.Error(), "disk full")

	ok := testutil.NewTestRendererMarkdown()
	require.NoError(t, reportBuild(ok.Renderer, "build", &render.Result{ID: "b2", Rendered: []string{"a.tsql"}}))
	assert.Contains(t, ok.Output(), "Rendered: 1")
}

func TestDirectiveTable_TitlesKinds(t *testing.T) {
	out := directiveTable([]output.DirectiveInfo{
		{Kind: "for", Line: 1, Column: 1, Var: "b", List: "[g]", Items: 1},
		{Kind: "end", Line: 3, Column: 1},
	}).RenderMarkdown()

	assert.Contains(t, out, "| For | b | [g] | 1 | 0 | 1:1 |")
	assert.Contains(t, out, "| End |")
	assert.Contains(t, out, "| 3:1 |")
	assert.NotContains(t, out, "| for |")
}

func TestProjectCommands(t *testing.T) {
	root := testutil.SetupTestProject(t)
	config.ResetConfig()
	_, err := config.LoadConfig(filepath.Join(root, "loopsql.yaml"), nil)
	require.NoError(t, err)

	check := NewCheckCommand()
	checkOut := &bytes.Buffer{}
	check.SetOut(checkOut)
	check.SetErr(&bytes.Buffer{})
	check.SetArgs(nil)
	require.NoError(t, check.Execute())
	assert.Contains(t, checkOut.String(), "Status: Valid")

	renderCmd := NewRenderCommand()
	renderCmd.SetOut(&bytes.Buffer{})
	renderCmd.SetErr(&bytes.Buffer{})
	renderCmd.SetArgs([]string{"--concurrency", "2"})
	require.NoError(t, renderCmd.Execute())

	stars, err := os.ReadFile(filepath.Join(root, "build", "stars.sql")) //nolint:gosec // test fixture path
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n  objid,\n  gPSFMag,\n  rPSFMag,\n  iPSFMag\nFROM stack\n", string(stars))

	pairs, err := os.ReadFile(filepath.Join(root, "build", "colors", "pairs.sql")) //nolint:gosec // test fixture path
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n  gPSFMag - iPSFMag,gPSFMag - zPSFMag,\n  rPSFMag - iPSFMag,rPSFMag - zPSFMag\nFROM stack\n", string(pairs))
}
