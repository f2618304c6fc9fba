package server

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapcheck/internal/server/notifier"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

var latestRunTmpl = template.Must(template.New("latest-run").Parse(
	`<div id="latest-run">` +
		`<h2>{{.Source}}</h2>` +
		`<p>{{.Summary.Rows}} rows, {{.Summary.Columns}} columns, {{.Summary.TotalIssues}} issues</p>` +
		`{{if .Ranked}}<ul>{{range .Ranked}}<li>{{.Kind}}: {{.Count}}</li>{{end}}</ul>{{end}}` +
		`</div>`))

type latestRunData struct {
	Source  string
	Summary core.Summary
	Ranked  []core.KindCount
}

// signals mirrors the latest run into the page's datastar signals.
type signals struct {
	RunID       string `json:"runId"`
	Source      string `json:"source"`
	Rows        int    `json:"rows"`
	TotalIssues int    `json:"totalIssues"`
}

// handleStream is the long-lived SSE endpoint. It sends the newest run on
// connect and again after every validation.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	sse := datastar.NewSSE(w, r)

	if store := s.engine.Store(); store != nil {
		run, err := store.GetLatestRun()
		if err != nil {
			_ = sse.ConsoleError(err)
		} else if run != nil {
			ev := notifier.Event{RunID: run.ID, Source: run.Source, Summary: run.Summary}
			if err := sendRun(sse, ev); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			if err := sendRun(sse, ev); err != nil {
				_ = sse.ConsoleError(err)
				// keep the stream open for the next run
			}
		}
	}
}

func sendRun(sse *datastar.ServerSentEventGenerator, ev notifier.Event) error {
	data, err := json.Marshal(signals{
		RunID:       ev.RunID,
		Source:      ev.Source,
		Rows:        ev.Summary.Rows,
		TotalIssues: ev.Summary.TotalIssues,
	})
	if err != nil {
		return err
	}
	if err := sse.PatchSignals(data); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := latestRunTmpl.Execute(&buf, latestRunData{
		Source:  ev.Source,
		Summary: ev.Summary,
		Ranked:  ev.Summary.Ranked(),
	}); err != nil {
		return err
	}
	return sse.PatchElements(buf.String())
}
