package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":      zerolog.InfoLevel,
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", &buf)
	h := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if line["component"] != "test" || line["path"] != "/health" {
		t.Errorf("unexpected fields: %v", line)
	}
	if line["status"] != float64(http.StatusTeapot) {
		t.Errorf("status: got %v", line["status"])
	}
	if line["bytes"] != float64(len("short and stout")) {
		t.Errorf("bytes: got %v", line["bytes"])
	}
}

func TestLeveledAdapter(t *testing.T) {
	var buf bytes.Buffer
	a := Leveled{L: NewWithWriter("http", &buf)}
	a.Error("request failed", "url", "https://example.test", "attempt", 2)
	out := buf.String()
	if !strings.Contains(out, `"url":"https://example.test"`) || !strings.Contains(out, `"attempt":2`) {
		t.Errorf("expected key/values in %s", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("expected error level in %s", out)
	}
}
