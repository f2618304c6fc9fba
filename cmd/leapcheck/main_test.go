// Package main provides tests for the leapcheck CLI.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapcheck/internal/cli"
	"github.com/leapstack-labs/leapcheck/internal/cli/commands"
	"github.com/leapstack-labs/leapcheck/internal/cli/config"
)

// setupProject writes a dataset and rules file and returns the common
// flags pointing at them.
func setupProject(t *testing.T) (csvPath string, flags []string) {
	t.Helper()
	config.ResetConfig()

	dir := t.TempDir()
	csvPath = filepath.Join(dir, "people.csv")
	rulesPath := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(csvPath, []byte("id,email,age\n1,a@x.com,30\n1,bad,-5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	rules := "required_columns: [id, email, age]\nunique_key_columns: [id]\nranges:\n  age: {min: 0, max: 120}\nemail_columns: [email]\n"
	if err := os.WriteFile(rulesPath, []byte(rules), 0o600); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "leapcheck.yaml")
	if err := os.WriteFile(cfgPath, []byte("history: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return csvPath, []string{
		"--config", cfgPath,
		"--rules", rulesPath,
		"--state", filepath.Join(dir, "history.db"),
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	output, err := run(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "leapcheck") {
		t.Errorf("version output should contain 'leapcheck', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := run(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	expectedCommands := []string{"validate", "checks", "rules", "history", "export", "query", "serve", "watch", "browse", "init"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestValidateCommand(t *testing.T) {
	csvPath, flags := setupProject(t)
	if err := os.WriteFile(flags[1], []byte("output: json\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	output, err := run(t, append([]string{"validate", csvPath}, flags...)...)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	var report struct {
		Summary struct {
			TotalIssues int `json:"total_issues"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(output), &report); err != nil {
		t.Fatalf("validate output is not JSON: %v\n%s", err, output)
	}
	if report.Summary.TotalIssues != 4 {
		t.Errorf("total_issues = %d, want 4", report.Summary.TotalIssues)
	}
}

func TestValidateCommand_FailOnIssues(t *testing.T) {
	csvPath, flags := setupProject(t)

	_, err := run(t, append([]string{"validate", csvPath, "--fail-on-issues", "-o", "markdown"}, flags...)...)
	if !errors.Is(err, commands.ErrIssuesFound) {
		t.Fatalf("expected ErrIssuesFound, got %v", err)
	}
	if got := exitCode(err); got != 1 {
		t.Errorf("exitCode = %d, want 1", got)
	}
}

func TestValidateCommand_NoHistory(t *testing.T) {
	csvPath, flags := setupProject(t)

	if _, err := run(t, append([]string{"validate", csvPath, "--no-history", "-o", "json"}, flags...)...); err != nil {
		t.Fatalf("validate command error = %v", err)
	}
	if _, err := os.Stat(flags[5]); !os.IsNotExist(err) {
		t.Errorf("history database should not be created with --no-history")
	}
}

func TestValidateCommand_MissingRulesFlag(t *testing.T) {
	csvPath, flags := setupProject(t)
	flags[3] = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := run(t, append([]string{"validate", csvPath}, flags...)...)
	if err == nil {
		t.Fatal("an explicit --rules that does not exist should fail")
	}
	if got := exitCode(err); got != 2 {
		t.Errorf("exitCode = %d, want 2", got)
	}
}

func TestChecksCommand_Disable(t *testing.T) {
	_, flags := setupProject(t)

	output, err := run(t, append([]string{"checks", "-o", "json", "--disable", "DQ03"}, flags...)...)
	if err != nil {
		t.Fatalf("checks command error = %v", err)
	}
	var entries []struct {
		ID      string `json:"id"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("checks output is not JSON: %v\n%s", err, output)
	}
	for _, e := range entries {
		if e.Enabled == (e.ID == "DQ03") {
			t.Errorf("check %s enabled = %v", e.ID, e.Enabled)
		}
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	_, flags := setupProject(t)
	_, err := run(t, append([]string{"checks", "-o", "xml"}, flags...)...)
	if err == nil {
		t.Error("invalid output format should return an error")
	}
}

func TestCompletionCommand(t *testing.T) {
	shells := []string{"bash", "zsh", "fish", "powershell"}

	for _, shell := range shells {
		t.Run(shell, func(t *testing.T) {
			output, err := run(t, "completion", shell)
			if err != nil {
				t.Errorf("completion %s command error = %v", shell, err)
			}
			if !strings.Contains(output, "leapcheck") {
				t.Errorf("completion %s output should mention leapcheck", shell)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	_, err := run(t, "unknown-command")
	if err == nil {
		t.Error("unknown command should return an error")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{commands.ErrIssuesFound, 1},
		{fmt.Errorf("wrapped: %w", commands.ErrIssuesFound), 1},
		{errors.New("boom"), 2},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
