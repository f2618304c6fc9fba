package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leapcheck/internal/engine"
	"github.com/leapstack-labs/leapcheck/internal/state"
	"github.com/leapstack-labs/leapcheck/pkg/check"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/export"
	"github.com/leapstack-labs/leapcheck/pkg/rules"
	"github.com/leapstack-labs/leapcheck/pkg/sources/csv"
)

// runView is the JSON form of a run.
type runView struct {
	ID         string       `json:"run_id"`
	Source     string       `json:"source"`
	RulesHash  string       `json:"rules_hash"`
	Summary    core.Summary `json:"summary"`
	CreatedAt  time.Time    `json:"created_at"`
	DurationMS int64        `json:"duration_ms"`
	Issues     []core.Issue `json:"issues,omitempty"`
}

func newRunView(run *core.Run, issues []core.Issue) runView {
	return runView{
		ID:         run.ID,
		Source:     run.Source,
		RulesHash:  run.RulesHash,
		Summary:    run.Summary,
		CreatedAt:  run.CreatedAt,
		DurationMS: run.Duration.Milliseconds(),
		Issues:     issues,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChecks(w http.ResponseWriter, _ *http.Request) {
	var infos []check.Info
	for _, d := range s.engine.Validator().Checks() {
		infos = append(infos, d.Info())
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleValidate validates an uploaded CSV file.
//
// Form fields:
//
//	file        the CSV upload (required)
//	rules       a YAML rules document
//	required, unique_key, types, ranges, allowed, email
//	            rule fields in line syntax, used when rules is empty
//	delimiter, encoding
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", s.maxUpload))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse form: %w", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("missing file field"))
		return
	}
	defer func() { _ = file.Close() }()

	rs, err := s.formRules(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	delim, err := formDelimiter(r.FormValue("delimiter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ds, err := csv.Read(file, csv.Options{Delimiter: delim, Encoding: r.FormValue("encoding")})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ds.Name = header.Filename

	rep, err := s.engine.Validate(r.Context(), engine.Request{Dataset: ds, Rules: rs, Save: true})
	if err != nil {
		var se *core.StructureError
		if errors.As(err, &se) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.announce(rep)

	writeJSON(w, http.StatusOK, newRunView(rep.Run, rep.Issues))
}

var ruleFields = []string{"required", "unique_key", "types", "ranges", "allowed", "email"}

// formRules prefers a YAML rules field, then the line-syntax fields, then
// the server's configured rules.
func (s *Server) formRules(r *http.Request) (core.RuleSet, error) {
	if doc := r.FormValue("rules"); strings.TrimSpace(doc) != "" {
		return rules.Parse([]byte(doc))
	}

	posted := false
	for _, f := range ruleFields {
		if _, ok := r.MultipartForm.Value[f]; ok {
			posted = true
			break
		}
	}
	if !posted {
		return s.rules, nil
	}

	return rules.FromText(rules.Text{
		Required:  r.FormValue("required"),
		UniqueKey: r.FormValue("unique_key"),
		Types:     r.FormValue("types"),
		Ranges:    r.FormValue("ranges"),
		Allowed:   r.FormValue("allowed"),
		Email:     r.FormValue("email"),
	})
}

func formDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return runes[0], nil
}

func (s *Server) store(w http.ResponseWriter) *state.SQLiteStore {
	store := s.engine.Store()
	if store == nil {
		writeError(w, http.StatusNotFound, errors.New("history is disabled"))
	}
	return store
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	store := s.store(w)
	if store == nil {
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := store.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]runView, len(runs))
	for i, run := range runs {
		views[i] = newRunView(run, nil)
	}
	writeJSON(w, http.StatusOK, views)
}

// lookupRun resolves the {id} parameter; "latest" names the newest run.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*state.SQLiteStore, *core.Run) {
	store := s.store(w)
	if store == nil {
		return nil, nil
	}

	id := chi.URLParam(r, "id")
	var run *core.Run
	var err error
	if id == "latest" {
		run, err = store.GetLatestRun()
		if err == nil && run == nil {
			err = &state.NotFoundError{ID: id}
		}
	} else {
		run, err = store.GetRun(id)
	}
	if err != nil {
		var nf *state.NotFoundError
		if errors.As(err, &nf) {
			writeError(w, http.StatusNotFound, err)
			return nil, nil
		}
		writeError(w, http.StatusInternalServerError, err)
		return nil, nil
	}
	return store, run
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	store, run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	issues, err := store.GetIssues(run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, newRunView(run, issues))
}

func (s *Server) handleIssuesCSV(w http.ResponseWriter, r *http.Request) {
	store, run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	issues, err := store.GetIssues(run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="issues.csv"`)
	if err := export.Write(w, issues, export.FormatCSV); err != nil {
		s.logger.Error("failed to write issues", "run_id", run.ID, "error", err)
	}
}

