package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yourorg/listing-relay/internal/metrics"
	"github.com/yourorg/listing-relay/listing"
)

var (
	ErrNoData = errors.New("no data fetched")
	ErrLocked = errors.New("another run is in progress")
)

const (
	LockKey    = "relay:lock"
	LastRunKey = "relay:last"

	lastRunTTL = 7 * 24 * time.Hour
)

type Source interface {
	Fetch(ctx context.Context) (listing.Batch, error)
}

type Sink interface {
	WriteRows(ctx context.Context, rows []listing.Row) error
}

// KV is the small key/value surface used for the run lock and the last-run
// summary. *redisx.Client satisfies it.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, val string, ttl time.Duration) error
	SetNX(ctx context.Context, key string, val string, ttl time.Duration) (bool, error)
	DelIfEquals(ctx context.Context, key string, val string) error
}

// Job runs fetch, transform and write once per call to Run.
type Job struct {
	Source  Source
	Sink    Sink
	KV      KV // optional
	LockTTL time.Duration
	Logger  zerolog.Logger
}

func (j *Job) validate() error {
	if j == nil {
		return errors.New("nil relay job")
	}
	if j.Source == nil {
		return errors.New("relay job missing source")
	}
	if j.Sink == nil {
		return errors.New("relay job missing sink")
	}
	if j.LockTTL <= 0 {
		j.LockTTL = 2 * time.Minute
	}
	return nil
}

// Run executes one invocation. Failures are logged and reported in the
// Result; Run never panics on a failed fetch or write.
func (j *Job) Run(ctx context.Context) Result {
	res := Result{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	if err := j.validate(); err != nil {
		res.Err = err
		return res
	}
	log := j.Logger.With().Str("run_id", res.RunID).Logger()

	if j.KV != nil {
		ok, err := j.KV.SetNX(ctx, LockKey, res.RunID, j.LockTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("run lock unavailable, continuing without it")
		case !ok:
			res.Err = ErrLocked
			log.Warn().Msg("skipping run, lock held by another invocation")
			j.finish(ctx, &res, log)
			return res
		default:
			defer j.unlock(ctx, res.RunID, log)
		}
	}

	j.run(ctx, &res, log)
	j.finish(ctx, &res, log)
	return res
}

func (j *Job) run(ctx context.Context, res *Result, log zerolog.Logger) {
	start := time.Now()
	batch, err := j.Source.Fetch(ctx)
	metrics.ObserveStage("fetch", time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("error fetching data from apify")
		res.Err = fmt.Errorf("%w: %w", ErrNoData, err)
		return
	}
	res.Fetched = len(batch)

	start = time.Now()
	rows := listing.Transform(batch)
	metrics.ObserveStage("transform", time.Since(start))
	res.Rows = len(rows)
	log.Info().Int("elements", res.Fetched).Int("rows", res.Rows).Msg("transformed listings")
	if len(rows) == 0 {
		log.Warn().Msg("no listings to insert, skipping write")
		return
	}

	start = time.Now()
	err = j.Sink.WriteRows(ctx, rows)
	metrics.ObserveStage("write", time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("error in batch insert")
		res.Err = err
		return
	}
	res.Written = true
}

func (j *Job) finish(ctx context.Context, res *Result, log zerolog.Logger) {
	res.Duration = time.Since(res.StartedAt)
	if res.Err != nil {
		res.Error = res.Err.Error()
	}
	outcome := res.Outcome()
	metrics.RunFinished(outcome, res.Rows, res.Written)
	log.Info().
		Str("outcome", outcome).
		Int("rows", res.Rows).
		Bool("written", res.Written).
		Dur("duration", res.Duration).
		Msg("execution completed")

	if j.KV == nil {
		return
	}
	b, err := json.Marshal(res.Summary())
	if err != nil {
		log.Warn().Err(err).Msg("encode run summary")
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := j.KV.Set(sctx, LastRunKey, string(b), lastRunTTL); err != nil {
		log.Warn().Err(err).Msg("store run summary")
	}
}

func (j *Job) unlock(ctx context.Context, runID string, log zerolog.Logger) {
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := j.KV.DelIfEquals(uctx, LockKey, runID); err != nil {
		log.Warn().Err(err).Msg("release run lock")
	}
}
