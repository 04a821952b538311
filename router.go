package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	httpapi "github.com/yourorg/listing-relay/http"
	"github.com/yourorg/listing-relay/internal/logger"
	"github.com/yourorg/listing-relay/internal/metrics"
)

func BuildRouter(deps httpapi.PipelineDeps, rateLimit int, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware(log))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"ok":true}`)) })
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		// each trigger hits apify and the database
		if rateLimit > 0 {
			r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))
		httpapi.RegisterPipeline(r, deps)
	})

	return r
}
