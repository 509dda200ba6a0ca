package history

import "time"

// RunRecord represents a single curation run in the database
type RunRecord struct {
	ID              int64     `json:"id"`
	RunID           string    `json:"run_id"`
	Action          string    `json:"action"` // emit, lint_raw
	Source          string    `json:"source"` // api, cli
	Status          string    `json:"status"` // pass, fail
	PeopleCount     int       `json:"people_count"`
	ErrorCount      int       `json:"error_count"`
	WarningCount    int       `json:"warning_count"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
