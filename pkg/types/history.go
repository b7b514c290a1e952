// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Outcome records how a conversion request ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	// OutcomeRejected marks requests refused before any tool ran
	// (bad directive, missing file, oversize body).
	OutcomeRejected Outcome = "rejected"
)

// HistoryEntry is one journaled conversion attempt.
type HistoryEntry struct {
	ID          string        `json:"id" yaml:"id"`
	RequestID   string        `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Conversion  Conversion    `json:"conversion" yaml:"conversion"`
	InputName   string        `json:"input_name" yaml:"input_name"`
	OutputName  string        `json:"output_name,omitempty" yaml:"output_name,omitempty"`
	InputBytes  int64         `json:"input_bytes" yaml:"input_bytes"`
	OutputBytes int64         `json:"output_bytes" yaml:"output_bytes"`
	Outcome     Outcome       `json:"outcome" yaml:"outcome"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}
