package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leapcheck/internal/cli"
)

// envVars are read by the CLI config loader; LEAPCHECK_ plus the upper-cased
// koanf key, with __ for nesting.
var envVars = [][]string{
	{"LEAPCHECK_RULES", "Default rules file"},
	{"LEAPCHECK_STATE_PATH", "Run history database path"},
	{"LEAPCHECK_HISTORY", "Set to false to stop recording runs"},
	{"LEAPCHECK_WORKERS", "Number of checks evaluated concurrently"},
	{"LEAPCHECK_DISABLED_CHECKS", "Comma-separated check IDs or names to skip"},
	{"LEAPCHECK_OUTPUT", "Default output format"},
	{"LEAPCHECK_VERBOSE", "Enable debug logging"},
	{"LEAPCHECK_SOURCE__DSN", "Connection string of the configured source"},
}

var exitCodes = [][]string{
	{"0", "Success"},
	{"1", "Issues at or above the --fail-on threshold were found (with --fail-on-issues)"},
	{"2", "Any other error; details are printed to stderr"},
}

// generateCLIDocs writes an index plus one page per command. Subcommands get
// their own page named after the full command path, e.g. history-list.md.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	if err := writePage(outDir, "index.md", cliIndex(root)); err != nil {
		return err
	}

	var walk func(cmds []*cobra.Command) error
	walk = func(cmds []*cobra.Command) error {
		for _, cmd := range cmds {
			if err := writePage(outDir, pageName(cmd)+".md", commandPage(cmd)); err != nil {
				return err
			}
			if err := walk(visibleCommands(cmd)); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(visibleCommands(root))
}

func writePage(outDir, name string, w *MarkdownWriter) error {
	if err := os.WriteFile(filepath.Join(outDir, name), w.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	log.Printf("  Generated %s", name)
	return nil
}

// visibleCommands returns the documented children of cmd.
func visibleCommands(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, c := range cmd.Commands() {
		if c.Hidden || c.Name() == "help" || strings.HasPrefix(c.Name(), "__") {
			continue
		}
		out = append(out, c)
	}
	return out
}

// pageName is the command path without the binary name, joined by dashes.
func pageName(cmd *cobra.Command) string {
	parts := strings.Fields(cmd.CommandPath())
	return strings.Join(parts[1:], "-")
}

func cliIndex(root *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for leapcheck")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("leapcheck validates datasets against a rules file, records every run, and serves the same validation over HTTP.")

	w.Header(2, "Installation")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/leapcheck/cmd/leapcheck@latest")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range visibleCommands(root) {
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), pageName(cmd))
		rows = append(rows, []string{link, cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Environment Variables")
	w.Paragraph("Flags take precedence over environment variables, which take precedence over leapcheck.yaml.")
	w.Table([]string{"Variable", "Description"}, codeFirst(envVars))

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, codeFirst(exitCodes))
	return w
}

func codeFirst(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{InlineCode(r[0]), r[1]}
	}
	return out
}

func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	title := strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()+" ")
	w.Frontmatter(title, cmd.Short)
	w.GeneratedMarker()

	w.Header(1, title)
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(desc)

	w.Header(2, "Usage")
	if subs := visibleCommands(cmd); len(subs) > 0 {
		w.CodeBlock("bash", cmd.CommandPath()+" <subcommand> [options]")
		w.Header(2, "Subcommands")
		var rows [][]string
		for _, sub := range subs {
			link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(sub.Name()), pageName(sub))
			rows = append(rows, []string{link, cleanDescription(sub.Short)})
		}
		w.Table([]string{"Subcommand", "Description"}, rows)
	} else {
		w.CodeBlock("bash", cmd.UseLine())
	}

	if len(cmd.Aliases) > 0 {
		w.Header(2, "Aliases")
		aliases := make([]string, len(cmd.Aliases))
		for i, a := range cmd.Aliases {
			aliases[i] = InlineCode(a)
		}
		w.BulletList(aliases)
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}
	if cmd.HasAvailableInheritedFlags() {
		w.Header(2, "Global Options")
		writeFlagsTable(w, cmd.InheritedFlags())
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}
	return w
}

func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}
		rows = append(rows, []string{
			InlineCode("--" + f.Name),
			short,
			flagDefault(f),
			cleanDescription(f.Usage),
		})
	})
	w.Table([]string{"Option", "Short", "Default", "Description"}, rows)
}

// flagDefault hides zero values so the table only shows meaningful defaults.
func flagDefault(f *pflag.Flag) string {
	switch f.DefValue {
	case "", "0", "[]", "false":
		return ""
	}
	if f.Value.Type() == "bool" {
		return f.DefValue
	}
	return InlineCode(f.DefValue)
}

// cleanExample strips the indentation shared by all non-blank lines.
func cleanExample(example string) string {
	lines := strings.Split(example, "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent == -1 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return strings.TrimSpace(example)
	}
	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
