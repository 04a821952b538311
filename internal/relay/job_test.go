package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourorg/listing-relay/listing"
)

type fakeSource struct {
	raw string
	err error
}

func (f fakeSource) Fetch(context.Context) (listing.Batch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return listing.DecodeBatch([]byte(f.raw))
}

type fakeSink struct {
	calls int
	rows  []listing.Row
	err   error
}

func (f *fakeSink) WriteRows(_ context.Context, rows []listing.Row) error {
	f.calls++
	f.rows = rows
	return f.err
}

type memKV struct {
	mu   sync.Mutex
	data map[string]string
	fail error
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], m.fail
}

func (m *memKV) Set(_ context.Context, key, val string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	return m.fail
}

func (m *memKV) SetNX(_ context.Context, key, val string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = val
	return true, nil
}

func (m *memKV) DelIfEquals(_ context.Context, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[key] == val {
		delete(m.data, key)
	}
	return m.fail
}

func TestRunWritesTransformedRows(t *testing.T) {
	sink := &fakeSink{}
	job := &Job{Source: fakeSource{raw: `[[{"zpid": 1}], [{"zpid": 2}]]`}, Sink: sink, Logger: zerolog.Nop()}

	res := job.Run(context.Background())
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if sink.calls != 1 || len(sink.rows) != 2 {
		t.Fatalf("expected one write of 2 rows, got calls=%d rows=%d", sink.calls, len(sink.rows))
	}
	if res.Fetched != 2 || res.Rows != 2 || !res.Written || res.Outcome() != "ok" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.RunID == "" {
		t.Error("expected run id")
	}
}

func TestRunFetchFailureSkipsWrite(t *testing.T) {
	sink := &fakeSink{}
	var logs bytes.Buffer
	job := &Job{
		Source: fakeSource{err: errors.New("apify error 503: Service Unavailable")},
		Sink:   sink,
		Logger: zerolog.New(&logs),
	}

	res := job.Run(context.Background())
	if sink.calls != 0 {
		t.Fatalf("sink must not be called after a failed fetch, got %d calls", sink.calls)
	}
	if !errors.Is(res.Err, ErrNoData) || res.Outcome() != "fetch_failed" {
		t.Errorf("expected fetch failure, got %v (%s)", res.Err, res.Outcome())
	}
	if !strings.Contains(logs.String(), "error fetching data from apify") || !strings.Contains(logs.String(), "503") {
		t.Errorf("expected fetch failure to be logged, got %s", logs.String())
	}
}

func TestRunWriteFailureIsLoggedNotRaised(t *testing.T) {
	sink := &fakeSink{err: errors.New("supabase insert failed: status 400 response body: {\"message\":\"bad column\"}")}
	var logs bytes.Buffer
	job := &Job{Source: fakeSource{raw: `[{"zpid": 1}]`}, Sink: sink, Logger: zerolog.New(&logs)}

	res := job.Run(context.Background())
	if res.Written || res.Outcome() != "write_failed" {
		t.Errorf("unexpected result %+v", res)
	}
	out := logs.String()
	if !strings.Contains(out, "error in batch insert") || !strings.Contains(out, "400") || !strings.Contains(out, "bad column") {
		t.Errorf("expected status and body in logs, got %s", out)
	}
	if !strings.Contains(out, "execution completed") {
		t.Errorf("run should still complete, got %s", out)
	}
}

func TestRunEmptyBatchSkipsWrite(t *testing.T) {
	sink := &fakeSink{}
	job := &Job{Source: fakeSource{raw: `[]`}, Sink: sink, Logger: zerolog.Nop()}
	res := job.Run(context.Background())
	if sink.calls != 0 || !res.OK() || res.Outcome() != "empty" {
		t.Errorf("expected empty run without write, calls=%d result=%+v", sink.calls, res)
	}
}

func TestRunLockHeld(t *testing.T) {
	kv := newMemKV()
	kv.data[LockKey] = "someone-else"
	sink := &fakeSink{}
	job := &Job{Source: fakeSource{raw: `[{"zpid": 1}]`}, Sink: sink, KV: kv, Logger: zerolog.Nop()}

	res := job.Run(context.Background())
	if !errors.Is(res.Err, ErrLocked) || sink.calls != 0 {
		t.Fatalf("expected locked skip, got %v calls=%d", res.Err, sink.calls)
	}
	if kv.data[LockKey] != "someone-else" {
		t.Error("foreign lock must be left in place")
	}
}

func TestRunReleasesLockAndRecordsSummary(t *testing.T) {
	kv := newMemKV()
	job := &Job{Source: fakeSource{raw: `[{"zpid": 1}]`}, Sink: &fakeSink{}, KV: kv, Logger: zerolog.Nop()}

	res := job.Run(context.Background())
	if _, held := kv.data[LockKey]; held {
		t.Error("lock should be released after the run")
	}

	s, ok, err := LastRun(context.Background(), kv)
	if err != nil || !ok {
		t.Fatalf("LastRun: ok=%v err=%v", ok, err)
	}
	if s.RunID != res.RunID || s.Outcome != "ok" || s.Rows != 1 || !s.Written {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestRunContinuesWhenLockStoreFails(t *testing.T) {
	kv := newMemKV()
	kv.fail = errors.New("connection refused")
	sink := &fakeSink{}
	job := &Job{Source: fakeSource{raw: `[{"zpid": 1}]`}, Sink: sink, KV: kv, Logger: zerolog.Nop()}

	if res := job.Run(context.Background()); !res.OK() || sink.calls != 1 {
		t.Errorf("expected run to proceed, got %+v calls=%d", res, sink.calls)
	}
}

func TestRunValidates(t *testing.T) {
	res := (&Job{Sink: &fakeSink{}}).Run(context.Background())
	if res.Err == nil || res.Outcome() != "error" {
		t.Errorf("expected validation error, got %+v", res)
	}
}

func TestLastRunEmpty(t *testing.T) {
	if _, ok, err := LastRun(context.Background(), newMemKV()); ok || err != nil {
		t.Errorf("expected nothing recorded, ok=%v err=%v", ok, err)
	}
}

func TestSummaryJSON(t *testing.T) {
	r := Result{RunID: "r1", Rows: 3, Err: ErrLocked, Error: ErrLocked.Error(), Duration: 1500 * time.Millisecond}
	b, err := json.Marshal(r.Summary())
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if m["outcome"] != "locked" || m["duration_ms"] != float64(1500) || m["run_id"] != "r1" {
		t.Errorf("unexpected summary %s", b)
	}
}
