// Package main provides tests for the LoopSQL CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/loopsql/internal/cli"
)

// setupProject creates a project with a config file and one template.
func setupProject(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	queries := filepath.Join(root, "queries", "marts")
	if err := os.MkdirAll(queries, 0750); err != nil {
		t.Fatalf("failed to create queries dir: %v", err)
	}

	tpl := "SELECT\n  -- for b in {bands} --\n  {b}Mag\n  -- end --\nFROM {tbl}"
	if err := os.WriteFile(filepath.Join(queries, "stars.tsql"), []byte(tpl), 0600); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}

	cfg := "queries_dir: queries\noutput_dir: build\nvars:\n  tbl: stack\n"
	cfgPath := filepath.Join(root, "loopsql.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return root, cfgPath
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	output, err := execute(t, "", "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "LoopSQL") {
		t.Errorf("version output should contain 'LoopSQL', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := execute(t, "", "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	expectedCommands := []string{"expand", "check", "render", "init", "completion", "version"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestExpandCommand(t *testing.T) {
	_, cfgPath := setupProject(t)

	output, err := execute(t, "SELECT {col} FROM {tbl}",
		"expand", "--config", cfgPath, "-o", "text", "-s", "col=ra")
	if err != nil {
		t.Fatalf("expand command error = %v", err)
	}
	if output != "SELECT ra FROM stack\n" {
		t.Errorf("unexpected expand output: %q", output)
	}
}

func TestRenderCommand(t *testing.T) {
	root, cfgPath := setupProject(t)

	output, err := execute(t, "", "render", "--config", cfgPath, "-o", "markdown", "--var", "bands=[g, r]")
	if err != nil {
		t.Fatalf("render command error = %v\n%s", err, output)
	}
	if !strings.Contains(output, "Rendered: 1") {
		t.Errorf("render output should report one rendered template, got: %s", output)
	}

	got, err := os.ReadFile(filepath.Join(root, "build", "marts", "stars.sql")) //nolint:gosec // test fixture path
	if err != nil {
		t.Fatalf("rendered file missing: %v", err)
	}
	want := "SELECT\n  gMag,\n  rMag\nFROM stack\n"
	if string(got) != want {
		t.Errorf("rendered SQL = %q, want %q", got, want)
	}
}

func TestCheckCommand(t *testing.T) {
	_, cfgPath := setupProject(t)

	// bands is unbound, so the loop list is not a literal
	output, err := execute(t, "", "check", "--config", cfgPath, "-o", "json")
	if err == nil {
		t.Fatalf("check should fail on an unbound loop list, got: %s", output)
	}
	if !strings.Contains(output, `"valid": false`) {
		t.Errorf("check output should mark the template invalid, got: %s", output)
	}

	output, err = execute(t, "", "check", "--config", cfgPath, "-o", "json", "-s", "bands=[g]")
	if err != nil {
		t.Fatalf("check command error = %v\n%s", err, output)
	}
	if !strings.Contains(output, `"valid": true`) {
		t.Errorf("check output should mark the template valid, got: %s", output)
	}
}

func TestCompletionCommand(t *testing.T) {
	output, err := execute(t, "", "completion", "bash")
	if err != nil {
		t.Fatalf("completion command error = %v", err)
	}
	if !strings.Contains(output, "bash completion") {
		t.Errorf("completion output should be a bash script, got: %.80s", output)
	}
}

func TestInvalidConfig(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "loopsql.yaml")
	if err := os.WriteFile(cfgPath, []byte("concurrency: 0\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := execute(t, "", "render", "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "concurrency") {
		t.Errorf("expected a concurrency validation error, got %v", err)
	}
}
