package logger

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New returns a component logger. LOG_LEVEL picks the level; outside
// ENVIRONMENT=production output goes through the console writer.
func New(component string) zerolog.Logger {
	return NewWithWriter(component, os.Stderr)
}

func NewWithWriter(component string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if os.Getenv("ENVIRONMENT") != "production" {
		if f, ok := w.(*os.File); ok {
			w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339}
		}
	}
	return zerolog.New(w).
		Level(parseLevel(os.Getenv("LOG_LEVEL"))).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Middleware logs one line per request. Install after middleware.RequestID
// to get the request id on each line.
func Middleware(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				l.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("http request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// Leveled adapts a zerolog.Logger to go-retryablehttp's LeveledLogger.
type Leveled struct {
	L zerolog.Logger
}

func (a Leveled) Error(msg string, kv ...interface{}) { a.event(a.L.Error(), msg, kv) }
func (a Leveled) Warn(msg string, kv ...interface{})  { a.event(a.L.Warn(), msg, kv) }
func (a Leveled) Info(msg string, kv ...interface{})  { a.event(a.L.Debug(), msg, kv) }
func (a Leveled) Debug(msg string, kv ...interface{}) { a.event(a.L.Debug(), msg, kv) }

func (a Leveled) event(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		e = e.Interface(fmt.Sprint(kv[i]), kv[i+1])
	}
	e.Msg(msg)
}
