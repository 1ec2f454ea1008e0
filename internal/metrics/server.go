package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/logging"
)

// ReadyFunc reports whether the service can accept downloads
type ReadyFunc func() error

// Server exposes Prometheus metrics and a readiness probe on its own port
type Server struct {
	server *http.Server
	port   int
	logger *logging.Logger
}

// NewServer creates a new metrics server. ready may be nil.
func NewServer(port int, ready ReadyFunc, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      NewHandler(ready),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		port:   port,
		logger: logger,
	}
}

// NewHandler returns the mux served by the metrics server
func NewHandler(ready ReadyFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Start blocks serving metrics until Shutdown is called
func (s *Server) Start() error {
	s.logger.Infof("Starting metrics server on port %d", s.port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the metrics server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down metrics server...")
	return s.server.Shutdown(ctx)
}
