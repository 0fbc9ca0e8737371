// Package models holds the §3 Data Model as plain structs persisted through
// pkg/persistence. JSON-capable columns are represented here as Go types and
// (de)serialized to jsonb at the persistence boundary, never carried as a
// schemaless map through business logic (§9 Design Notes).
package models

import "time"

// RunStatus is the terminal/non-terminal lifecycle of any pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether the status is one that requires CompletedAt to
// be set (the Universal Invariant in §8: completed_at IS NOT NULL iff status
// is terminal).
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// ExtractionCounters tracks the discovered/processed/... counters shared by
// every extraction-style run (§3).
type ExtractionCounters struct {
	Discovered int `json:"discovered"`
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	Extracted  int `json:"extracted"`
	Valid      int `json:"valid"`
	UniqueHash int `json:"unique_hash"`
	APIFailure int `json:"api_failure"`
}

// ExtractionRun is one invocation of the SQL Corpus Pipeline's crawl+extract
// phase (§3 ExtractionRun).
type ExtractionRun struct {
	ID          string     `json:"id"`
	OwningUser  string     `json:"owning_user"`
	OwningOrg   string     `json:"owning_org"`
	Workspace   string     `json:"workspace"`
	Cutoff      *time.Time `json:"cutoff,omitempty"`
	Counters    ExtractionCounters `json:"counters"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Failures    []string   `json:"failures,omitempty"`
}

// ConfigExtractionRun is one invocation of the Configuration Object
// Pipeline's fan-out fetch phase.
type ConfigExtractionRun struct {
	ID           string    `json:"id"`
	OwningUser   string    `json:"owning_user"`
	OwningOrg    string    `json:"owning_org"`
	Host         string    `json:"host"`
	Counters     ExtractionCounters `json:"counters"`
	Status       RunStatus `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// ConfluenceExtraction is one invocation of the wiki collection step used by
// the Context Tree Engine's Collector (§4.5).
type ConfluenceExtraction struct {
	ID           string    `json:"id"`
	OwningUser   string    `json:"owning_user"`
	OwningOrg    string    `json:"owning_org"`
	Host         string    `json:"host"`
	Counters     ExtractionCounters `json:"counters"`
	Status       RunStatus `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}
