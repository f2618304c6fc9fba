package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	starctx "github.com/leapstack-labs/leapcheck/internal/starlark"
	"github.com/leapstack-labs/leapcheck/pkg/check"
	"github.com/leapstack-labs/leapcheck/pkg/validate"
)

// ChecksOptions holds options for the checks command.
type ChecksOptions struct {
	Group  string
	Format string
}

// checkEntry is a check with its enabled state.
type checkEntry struct {
	check.Info
	Enabled bool `json:"enabled"`
}

// NewChecksCommand creates the checks command.
func NewChecksCommand() *cobra.Command {
	opts := &ChecksOptions{}
	cmd := &cobra.Command{
		Use:   "checks [check-id]",
		Short: "List the data-quality checks",
		Long: `List the checks run by validate, in evaluation order.

Checks listed in disabled_checks (or --disable) are marked as disabled.
Pass a check ID or name to see its documentation.`,
		Example: `  # List all checks
  leapcheck checks

  # Show details for one check
  leapcheck checks DQ03

  # Output as JSON
  leapcheck checks --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showCheck(cmd, args[0], opts)
			}
			return listChecks(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Filter by group")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")

	return cmd
}

// allChecks returns every check definition in evaluation order.
func allChecks() []check.Def {
	return append(check.All(), starctx.NewEvaluator().Def())
}

func checkEntries(disabled []string) []checkEntry {
	enabled := map[string]bool{}
	v := validate.New(nil, validate.WithChecks(starctx.NewEvaluator().Def()), validate.WithDisabled(disabled...))
	for _, d := range v.Checks() {
		enabled[d.ID] = true
	}

	defs := allChecks()
	entries := make([]checkEntry, len(defs))
	for i, d := range defs {
		entries[i] = checkEntry{Info: d.Info(), Enabled: enabled[d.ID]}
	}
	return entries
}

func checksRenderer(cmd *cobra.Command, cmdCtx *CommandContext, format string) *output.Renderer {
	if format != "" {
		return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
	}
	return cmdCtx.Renderer
}

func listChecks(cmd *cobra.Command, opts *ChecksOptions) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := checksRenderer(cmd, cmdCtx, opts.Format)

	var entries []checkEntry
	for _, e := range checkEntries(cmdCtx.Cfg.DisabledChecks) {
		if opts.Group == "" || e.Group == opts.Group {
			entries = append(entries, e)
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(entries)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Group", "Description", "Status"})
	for _, e := range entries {
		status := "enabled"
		if !e.Enabled {
			status = "disabled"
		}
		t.AppendRow(table.Row{e.ID, e.Name, e.Group, e.Description, status})
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Header(2, fmt.Sprintf("Checks (%d)", len(entries)))
		t.RenderMarkdown()
		return nil
	}
	r.Header(1, fmt.Sprintf("Checks (%d)", len(entries)))
	t.Render()
	return nil
}

func showCheck(cmd *cobra.Command, idOrName string, opts *ChecksOptions) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := checksRenderer(cmd, cmdCtx, opts.Format)

	var def *check.Def
	for _, d := range allChecks() {
		if strings.EqualFold(d.ID, idOrName) || strings.EqualFold(d.Name, idOrName) {
			def = &d
			break
		}
	}
	if def == nil {
		return fmt.Errorf("check %q not found", idOrName)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			check.Info
			Rationale string `json:"rationale,omitempty"`
			Example   string `json:"example,omitempty"`
		}{def.Info(), def.Rationale, def.Example})
	}

	r.Header(1, fmt.Sprintf("%s %s", def.ID, def.Name))
	r.Println(def.Description)
	r.Println("")
	kinds := make([]string, len(def.Kinds))
	for i, k := range def.Kinds {
		kinds[i] = string(k)
	}
	r.KeyValue("Group", def.Group)
	r.KeyValue("Issues", strings.Join(kinds, ", "))
	if def.Rationale != "" {
		r.Println("")
		r.Header(2, "Rationale")
		r.Println(def.Rationale)
	}
	if def.Example != "" {
		r.Println("")
		r.Header(2, "Example")
		if r.EffectiveMode() == output.ModeMarkdown {
			r.Println(output.FormatCodeBlock("yaml", def.Example))
		} else {
			r.Muted(def.Example)
		}
	}
	return nil
}
