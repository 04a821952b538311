package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesRunMetrics(t *testing.T) {
	RunFinished("ok", 3, true)
	RunFinished("write_failed", 2, false)
	ObserveStage("fetch", 120*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`listing_relay_runs_total{outcome="ok"}`,
		`listing_relay_runs_total{outcome="write_failed"}`,
		`listing_relay_rows_transformed_total`,
		`listing_relay_rows_written_total`,
		`listing_relay_stage_duration_seconds_count{stage="fetch"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in scrape output", want)
		}
	}
}
