package models

import "time"

// JobStatus is the snapshot returned by a batch status query.
type JobStatus struct {
	JobID     string    `json:"job_id"`
	UserID    string    `json:"user_id"`
	Total     int       `json:"total"`
	Pending   []string  `json:"pending"`
	Done      []string  `json:"done"`
	Failed    []string  `json:"failed"`
	StartedAt time.Time `json:"started_at"`
}

// JobMeta is the persisted job record.
type JobMeta struct {
	JobID     string    `json:"job_id"`
	UserID    string    `json:"user_id"`
	Asset     string    `json:"asset"`
	Timeframe string    `json:"timeframe"`
	Limit     int       `json:"limit"`
	Total     int       `json:"total"`
	StartedAt time.Time `json:"started_at"`
}

// Result status values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// JobResult is the per-symbol outcome persisted by a batch worker.
type JobResult struct {
	Symbol string         `json:"symbol"`
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"` // error kind, see batch errors
	Draks  *DecisionBlock `json:"draks,omitempty"`
}

// DecisionBlock bundles the consensus with the per-engine results that
// produced it.
type DecisionBlock struct {
	Consensus Consensus                  `json:"consensus"`
	Engines   map[string]*DecisionResult `json:"engines"`
	AsOf      time.Time                  `json:"as_of"`
}

// ProgressEvent is published after every per-symbol state transition.
// Subscribers must tolerate re-ordering and inspect done+failed.
type ProgressEvent struct {
	JobID      string `json:"job_id"`
	Done       int    `json:"done"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
	Finished   bool   `json:"finished,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}
