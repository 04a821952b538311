package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	httpapi "github.com/yourorg/listing-relay/http"
	"github.com/yourorg/listing-relay/internal/app"
	"github.com/yourorg/listing-relay/internal/config"
	"github.com/yourorg/listing-relay/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	log := logger.New("trigger")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup")
	}
	defer a.Close()

	router := BuildRouter(httpapi.PipelineDeps{
		Job:     a.Job,
		KV:      a.KV(),
		Timeout: cfg.Server.PipelineTimeout,
	}, cfg.Server.RateLimit, log)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Fatal().Err(err).Msg("listen")
	}

	log.Info().Int("port", cfg.Server.Port).Str("sink", cfg.Sink.Mode).Msg("listing-relay listening")
	if err := serve(ctx, srv, ln, cfg.Server.PipelineTimeout+5*time.Second, log); err != nil {
		a.Close()
		log.Fatal().Err(err).Msg("serve")
	}
	log.Info().Msg("server stopped")
}
