package httpapi

import (
    "context"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/render"

    "github.com/yourorg/listing-relay/internal/relay"
)

const pipelineMessage = "data pipeline executed"

type Runner interface {
    Run(ctx context.Context) relay.Result
}

type PipelineDeps struct {
    Job     Runner
    KV      relay.KV // nil disables /api/data-pipeline/last
    Timeout time.Duration
}

type pipelineResponse struct {
    Message string `json:"message"`
    OK      bool   `json:"ok"`
    relay.Summary
}

// RegisterPipeline mounts the trigger. Any method runs the pipeline once and
// answers 200 whatever the outcome; the body carries the run summary.
func RegisterPipeline(r chi.Router, deps PipelineDeps) {
    if deps.Timeout <= 0 { deps.Timeout = 2 * time.Minute }

    run := func(w http.ResponseWriter, req *http.Request) {
        // a dropped client must not abort a half-done insert
        ctx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), deps.Timeout)
        defer cancel()

        res := deps.Job.Run(ctx)
        render.Status(req, http.StatusOK)
        render.JSON(w, req, pipelineResponse{Message: pipelineMessage, OK: res.OK(), Summary: res.Summary()})
    }
    r.HandleFunc("/api/data-pipeline", run)

    r.Get("/api/data-pipeline/last", func(w http.ResponseWriter, req *http.Request) {
        if deps.KV == nil {
            render.Status(req, http.StatusNotFound)
            render.JSON(w, req, map[string]any{"error": "run_history_disabled"})
            return
        }
        s, ok, err := relay.LastRun(req.Context(), deps.KV)
        if err != nil {
            render.Status(req, http.StatusBadGateway)
            render.JSON(w, req, map[string]any{"error": "run_history_unavailable", "detail": err.Error()})
            return
        }
        if !ok {
            render.Status(req, http.StatusNotFound)
            render.JSON(w, req, map[string]any{"error": "no_runs_recorded"})
            return
        }
        render.JSON(w, req, s)
    })
}
