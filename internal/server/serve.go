package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Serve runs the HTTP server until SIGINT or SIGTERM, then drains in-flight
// requests within the shutdown timeout and executes the registered hooks.
// In-flight provider batches are bounded by the same timeout, so it should
// exceed the longest configured batch delay chain.
func Serve(srv *http.Server, shutdownTimeout time.Duration, hooks *ShutdownHooks) error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveResult := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		serveResult <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveResult:
		// ListenAndServe only returns on failure to start or an unexpected
		// listener error; hooks still run so partial startup is unwound.
		hooks.Execute(context.Background())
		return err

	case <-notifyCtx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		log.Warn().Err(err).Msg("server shutdown incomplete")
	} else {
		log.Info().Msg("server drained")
	}

	hooks.Execute(shutdownCtx)

	if serveErr := <-serveResult; !errors.Is(serveErr, http.ErrServerClosed) {
		err = errors.Join(err, serveErr)
	}

	return err
}
