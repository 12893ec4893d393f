// Package models defines the domain types for ansuz.
package models

import "time"

// DocType is a document-type classification tag.
type DocType string

// DocTypeGeneric is returned when no classification rule matches.
const DocTypeGeneric DocType = "technical-document"

// Metadata holds the header fields inferred or preserved for a document.
type Metadata struct {
	Title   string  `json:"title"`
	Type    DocType `json:"type"`
	Version string  `json:"version"`
	Created string  `json:"created"`
	Updated string  `json:"updated"`
}

// Status is the result of processing one document.
type Status string

const (
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Outcome describes what happened to a single document during a run.
type Outcome struct {
	Path           string   `json:"path"`
	Status         Status   `json:"status"`
	Metadata       Metadata `json:"metadata"`
	ChecksumBefore string   `json:"checksum_before,omitempty"`
	ChecksumAfter  string   `json:"checksum_after,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Failed reports whether the document could not be processed.
func (o Outcome) Failed() bool {
	return o.Status == StatusFailed
}

// Summary aggregates outcome counts for a run.
type Summary struct {
	Processed int  `json:"processed"`
	Updated   int  `json:"updated"`
	Unchanged int  `json:"unchanged"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	DryRun    bool `json:"dry_run"`
}

// Add counts a single outcome.
func (s *Summary) Add(o Outcome) {
	s.Processed++
	switch o.Status {
	case StatusUpdated:
		s.Updated++
	case StatusUnchanged:
		s.Unchanged++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}

// Succeeded returns the number of documents processed without failure.
func (s Summary) Succeeded() int {
	return s.Processed - s.Failed
}

// Run is a recorded normalization run.
type Run struct {
	ID         int64     `json:"id"`
	Root       string    `json:"root"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Summary    Summary   `json:"summary"`
}
