package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// serve runs srv on ln until ctx is done, then drains in-flight requests for
// up to drain before returning. It returns the Serve error, or the Shutdown
// error when draining did not finish in time.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, drain time.Duration, log zerolog.Logger) error {
	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Info().Dur("drain", drain).Msg("shutting down, waiting for in-flight runs")
		sctx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	// Serve returns as soon as Shutdown starts; wait for the drain
	return <-shutdownErr
}
