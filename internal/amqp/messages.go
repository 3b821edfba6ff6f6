package amqp

import (
	"encoding/json"
	"time"
)

// RunSummary reports one workflow run's outcome, published after every
// run regardless of success.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Workflow   string    `json:"workflow"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Ready      int       `json:"ready"`
	Staged     int       `json:"staged"`
	Skipped    int       `json:"skipped"`
	Dropped    int       `json:"dropped"`
	Duplicates int       `json:"duplicates"`
	Unknowns   int       `json:"unknowns"`
	Files      int       `json:"files"`
	Approved   int       `json:"approved"`
	Rejected   int       `json:"rejected"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// ToJSON converts the summary to JSON bytes.
func (m *RunSummary) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RunSummaryFromJSON creates a summary from JSON bytes.
func RunSummaryFromJSON(data []byte) (*RunSummary, error) {
	var msg RunSummary
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// FailureNotice is published in addition to the run summary when a
// workflow fails, so alerting can bind a dedicated consumer to it.
type FailureNotice struct {
	RunID     string    `json:"run_id"`
	Workflow  string    `json:"workflow"`
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ToJSON converts the notice to JSON bytes.
func (m *FailureNotice) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FailureNoticeFromJSON creates a notice from JSON bytes.
func FailureNoticeFromJSON(data []byte) (*FailureNotice, error) {
	var msg FailureNotice
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
