package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Result summarises one invocation.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Fetched   int // top-level elements of the payload
	Rows      int
	Written   bool
	Error     string

	Err error
}

func (r Result) OK() bool { return r.Err == nil }

// Outcome is a short label for logs, metrics and the trigger response.
func (r Result) Outcome() string {
	switch {
	case errors.Is(r.Err, ErrLocked):
		return "locked"
	case errors.Is(r.Err, ErrNoData):
		return "fetch_failed"
	case r.Err != nil && r.Rows > 0:
		return "write_failed"
	case r.Err != nil:
		return "error"
	case r.Rows == 0:
		return "empty"
	default:
		return "ok"
	}
}

// Summary is the JSON view of a run, as returned by the trigger and stored
// for the last-run endpoint.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	Fetched    int       `json:"fetched"`
	Rows       int       `json:"rows"`
	Written    bool      `json:"written"`
	Error      string    `json:"error,omitempty"`
	Outcome    string    `json:"outcome"`
	DurationMS int64     `json:"duration_ms"`
}

func (r Result) Summary() Summary {
	return Summary{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		Fetched:    r.Fetched,
		Rows:       r.Rows,
		Written:    r.Written,
		Error:      r.Error,
		Outcome:    r.Outcome(),
		DurationMS: r.Duration.Milliseconds(),
	}
}

// LastRun reads the summary stored by the most recent run.
// ok is false when nothing has been recorded yet.
func LastRun(ctx context.Context, kv KV) (s Summary, ok bool, err error) {
	val, err := kv.Get(ctx, LastRunKey)
	if err != nil || val == "" {
		return Summary{}, false, err
	}
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return Summary{}, false, err
	}
	return s, true, nil
}
