package core

import "time"

// Store defines the interface for validation history.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	SaveRun(run *Run, issues []Issue) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)
	GetLatestRun() (*Run, error)
	DeleteRun(id string) error

	// Issue operations
	GetIssues(runID string) ([]Issue, error)
}

// Run is one recorded validation of a dataset.
type Run struct {
	ID        string
	Source    string
	RulesHash string
	Summary   Summary
	CreatedAt time.Time
	Duration  time.Duration
}
