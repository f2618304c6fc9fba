package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/export"
)

// runReport is the JSON form of a validation run.
type runReport struct {
	RunID     string       `json:"run_id,omitempty"`
	Source    string       `json:"source"`
	RulesHash string       `json:"rules_hash"`
	CreatedAt time.Time    `json:"created_at"`
	Summary   core.Summary `json:"summary"`
	Issues    []core.Issue `json:"issues"`
}

func newRunReport(run *core.Run, issues []core.Issue) runReport {
	if issues == nil {
		issues = []core.Issue{}
	}
	return runReport{
		RunID:     run.ID,
		Source:    run.Source,
		RulesHash: run.RulesHash,
		CreatedAt: run.CreatedAt,
		Summary:   run.Summary,
		Issues:    issues,
	}
}

// renderReport prints one run in the renderer's mode.
func renderReport(r *output.Renderer, run *core.Run, issues []core.Issue) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(newRunReport(run, issues))
	case output.ModeMarkdown:
		return renderReportMarkdown(r, run, issues)
	default:
		return renderReportText(r, run, issues)
	}
}

func renderReportText(r *output.Renderer, run *core.Run, issues []core.Issue) error {
	r.Header(1, run.Source)
	r.KeyValue("Rows", run.Summary.Rows)
	r.KeyValue("Columns", run.Summary.Columns)
	if run.ID != "" {
		r.KeyValue("Run", run.ID)
	}
	r.Println("")

	if len(issues) == 0 {
		r.Success("No issues found")
		return nil
	}

	if err := export.Write(r.Writer(), issues, export.FormatTable); err != nil {
		return err
	}
	r.Println("")
	for _, kc := range run.Summary.Ranked() {
		r.StatusLine(string(kc.Kind), severityStatus(kc.Kind), fmt.Sprintf("(%d)", kc.Count))
	}
	r.Println("")
	r.Warning(fmt.Sprintf("%s found", plural(run.Summary.TotalIssues, "issue")))
	return nil
}

func renderReportMarkdown(r *output.Renderer, run *core.Run, issues []core.Issue) error {
	r.Header(2, run.Source)
	if run.ID != "" {
		r.KeyValue("Run", run.ID)
	}
	r.KeyValue("Rules", run.RulesHash)
	r.Println("")

	if err := export.WriteSummary(r.Writer(), run.Summary, export.FormatMarkdown); err != nil {
		return err
	}
	r.Println("")

	if len(issues) == 0 {
		r.Println("No issues found.")
		return nil
	}
	r.Header(3, "Issues")
	return export.Write(r.Writer(), issues, export.FormatMarkdown)
}

func severityStatus(k core.Kind) string {
	if k.Severity() == core.SeverityError {
		return "error"
	}
	return "warning"
}

// renderPreview prints the leading rows of a dataset.
func renderPreview(r *output.Renderer, ds *core.Dataset) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)

	header := table.Row{""}
	for _, c := range ds.Columns() {
		header = append(header, c)
	}
	t.AppendHeader(header)
	for i := range ds.NumRows() {
		row := table.Row{i}
		for _, v := range ds.Row(i) {
			row = append(row, v.Text())
		}
		t.AppendRow(row)
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	r.Println("")
}

// failOn reports whether issues reach the severity threshold.
func failOn(issues []core.Issue, threshold core.Severity) bool {
	sev, ok := core.MaxSeverity(issues)
	return ok && sev.AtLeast(threshold)
}
