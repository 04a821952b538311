package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/yourorg/listing-relay/internal/app"
	"github.com/yourorg/listing-relay/internal/config"
	"github.com/yourorg/listing-relay/internal/logger"
	"github.com/yourorg/listing-relay/internal/relay"
	"github.com/yourorg/listing-relay/listing"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	dryRun := flag.Bool("dry-run", false, "fetch and transform, print rows as JSON, skip the write")
	flag.Parse()

	log := logger.New("relay")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, *dryRun, os.Stdout, log)
	stop()
	os.Exit(code)
}

// run performs one invocation and returns the process exit code.
func run(ctx context.Context, cfg config.Config, dryRun bool, stdout io.Writer, log zerolog.Logger) int {
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup")
		return 1
	}
	defer a.Close()

	if dryRun {
		a.Job.Sink = printSink{w: stdout}
		a.Job.KV = nil
	}
	return exitCode(a.Job.Run(ctx))
}

// exitCode is 1 when the fetch or write failed. A run skipped because
// another one holds the lock is not a failure.
func exitCode(res relay.Result) int {
	if res.OK() || errors.Is(res.Err, relay.ErrLocked) {
		return 0
	}
	return 1
}

type printSink struct{ w io.Writer }

func (p printSink) WriteRows(_ context.Context, rows []listing.Row) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
