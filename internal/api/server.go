package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"loan-viability/internal/config"
)

// NewServer assembles the HTTP server with rate limiting and request logging.
// The returned limiter must be stopped by the caller.
func NewServer(cfg config.ServerConfig, h *Handler, logger zerolog.Logger) (*http.Server, *RateLimiter) {
	limiter := NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	handler := LoggingMiddleware(logger.With().Str("component", "http").Logger(), RateLimitMiddleware(limiter, h.Routes()))

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}, limiter
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down http api")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
