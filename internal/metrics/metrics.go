package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_relay_runs_total",
		Help: "Pipeline runs by outcome",
	}, []string{"outcome"})

	rowsTransformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listing_relay_rows_transformed_total",
		Help: "Rows produced by the transform step",
	})

	rowsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listing_relay_rows_written_total",
		Help: "Rows accepted by the sink",
	})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listing_relay_stage_duration_seconds",
		Help:    "Time spent per pipeline stage",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"stage"})
)

func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func RunFinished(outcome string, rows int, written bool) {
	runsTotal.WithLabelValues(outcome).Inc()
	rowsTransformedTotal.Add(float64(rows))
	if written {
		rowsWrittenTotal.Add(float64(rows))
	}
}

func Handler() http.Handler { return promhttp.Handler() }
