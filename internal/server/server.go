package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/server/handlers"
	"github.com/iudanet/meshsync/internal/server/middleware"
	"github.com/iudanet/meshsync/internal/server/relay"
	"github.com/iudanet/meshsync/internal/server/storage"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second

	healthPath = "/api/v1/health"
)

// Options зависимости relay-сервера
type Options struct {
	Storage storage.Storage
	Tokens  middleware.TokenValidator
	Logger  *slog.Logger
	Version string
	Config  config.ServerConfig
}

// Server relay-сервер
type Server struct {
	hub     *relay.Hub
	limiter *middleware.RateLimiter
	store   storage.Storage
	logger  *slog.Logger
	handler http.Handler
	addr    string
}

// New собирает сервер
func New(opts Options) *Server {
	hub := relay.New(relay.Options{Storage: opts.Storage, Logger: opts.Logger})
	limiter := middleware.NewRateLimiter(opts.Config.RateLimit, opts.Config.RateBurst, opts.Logger)

	s := &Server{
		hub:     hub,
		limiter: limiter,
		store:   opts.Storage,
		logger:  opts.Logger,
		addr:    opts.Config.ListenAddr,
	}
	s.handler = s.routes(opts)
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	health := handlers.NewHealthHandler(s.logger, s.hub, opts.Version)
	relayHandler := handlers.NewRelayHandler(s.logger, s.hub, s.store)

	auth := middleware.AuthMiddleware(s.logger, opts.Tokens)
	limit := middleware.RateLimitMiddleware(s.limiter, s.logger)
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(limit(h))
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+healthPath, limit(http.HandlerFunc(health.Health)))
	mux.Handle("GET /api/v1/ws", protected(relayHandler.WebSocket))
	mux.Handle("GET /api/v1/devices", protected(relayHandler.Devices))
	mux.Handle("GET /api/v1/frames", protected(relayHandler.Frames))

	var h http.Handler = mux
	h = middleware.LoggingWithSkip(s.logger, []string{healthPath})(h)
	h = middleware.RecoveryMiddleware(s.logger)(h)
	return h
}

// Handler возвращает корневой http.Handler (для httptest)
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub возвращает websocket hub
func (s *Server) Hub() *relay.Hub {
	return s.hub
}

// Run слушает адрес до отмены ctx, затем корректно завершает соединения
func (s *Server) Run(ctx context.Context) error {
	if err := s.store.ResetOnline(ctx); err != nil {
		return fmt.Errorf("failed to reset device presence: %w", err)
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Relay server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down relay server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	// Shutdown не закрывает перехваченные websocket-соединения
	s.hub.Close()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// Close останавливает фоновые задачи сервера
func (s *Server) Close() {
	s.limiter.Stop()
}
