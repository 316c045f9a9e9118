package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MalloZup/realmd/internal/logger"
	"github.com/MalloZup/realmd/pkg/api/auth"
)

// Server is the control-API HTTP server.
//
// It exposes realm discovery, enrollment, and login-policy operations plus
// health and metrics endpoints. The server supports graceful shutdown.
type Server struct {
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new control-API server.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests. Defaults are applied here so the server works even when created
// directly in tests.
//
// When the config carries a JWT secret every /api/v1 route requires a valid
// bearer token; enrollment routes additionally require the admin role.
func NewServer(config APIConfig, handlers *Handlers) (*Server, error) {
	config.applyDefaults()

	var jwtService *auth.JWTService
	if config.JWTSecret != "" {
		var err error
		jwtService, err = auth.NewJWTService(auth.JWTConfig{Secret: config.JWTSecret})
		if err != nil {
			return nil, fmt.Errorf("configure API authorization: %w", err)
		}
	}

	router := NewRouter(handlers, jwtService)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Listen, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server: server,
		config: config,
	}, nil
}

// Start starts the HTTP server and blocks until the context is cancelled or
// an error occurs. Cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("control API listening", "addr", s.server.Addr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("control API shutdown signal received")
		// A fresh context: the cancelled one would abort the drain
		// immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("control API failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and safe to
// call concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("control API shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("control API shutdown error: %w", err)
			logger.Error("control API shutdown error", "error", err)
		} else {
			logger.Info("control API stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is configured to listen on.
func (s *Server) Port() int {
	return s.config.Port
}
