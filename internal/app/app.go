// Package app assembles a relay.Job from configuration. The trigger server
// and the one-shot CLI share it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourorg/listing-relay/apify"
	"github.com/yourorg/listing-relay/internal/config"
	"github.com/yourorg/listing-relay/internal/redisx"
	"github.com/yourorg/listing-relay/internal/relay"
	"github.com/yourorg/listing-relay/internal/store"
	"github.com/yourorg/listing-relay/supabase"
)

// App holds the job plus whatever connections it owns.
type App struct {
	Job   *relay.Job
	Redis *redisx.Client // nil when REDIS_ADDR is unset
	Store *store.Store   // nil unless SINK_MODE=postgres

	log zerolog.Logger
}

// Build validates cfg and connects the configured source, sink and optional
// Redis. Redis failures are logged and the job runs without a lock.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a := &App{log: log}

	src := apify.NewClient(cfg.Source.URL, apify.Options{
		Timeout:  cfg.Source.Timeout,
		RetryMax: cfg.Source.RetryMax,
		MaxBytes: cfg.Source.MaxBytes,
		RPS:      cfg.Source.RPS,
		Logger:   log.With().Str("component", "apify").Logger(),
	})

	var sink relay.Sink
	switch cfg.Sink.Mode {
	case config.SinkPostgres:
		st, err := openStore(ctx, cfg.Sink)
		if err != nil {
			return nil, err
		}
		a.Store = st
		sink = st
	default:
		sink = supabase.NewClient(cfg.Sink.URL, cfg.Sink.Key, supabase.Options{
			Timeout:  cfg.Sink.Timeout,
			RetryMax: cfg.Sink.RetryMax,
			Prefer:   cfg.Sink.Prefer,
			Logger:   log.With().Str("component", "supabase").Logger(),
		})
	}

	a.Job = &relay.Job{
		Source:  src,
		Sink:    sink,
		LockTTL: cfg.Redis.LockTTL,
		Logger:  log,
	}

	if cfg.Redis.Addr != "" {
		rc := redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, running without lock")
			_ = rc.Close()
		} else {
			a.Redis = rc
			a.Job.KV = rc
		}
	}
	return a, nil
}

func openStore(ctx context.Context, sc config.SinkConfig) (*store.Store, error) {
	st, err := store.Open(sc.PostgresDSN, sc.Table)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if sc.Migrate {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return st, nil
}

// KV returns the last-run store, or nil when Redis is not connected.
func (a *App) KV() relay.KV {
	if a.Redis == nil {
		return nil
	}
	return a.Redis
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close redis")
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close postgres")
		}
	}
}
