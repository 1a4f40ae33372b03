package observability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// HealthFunc reports the current health of the process.
type HealthFunc func(ctx context.Context) HealthStatus

// Server exposes /metrics and /health.
type Server struct {
	addr   string
	health HealthFunc
	server *http.Server
	bound  string
}

func NewServer(addr string, health HealthFunc) *Server {
	return &Server{addr: addr, health: health}
}

// Handler returns the mux served by Start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{Status: "up", Timestamp: time.Now().UTC(), Components: map[string]string{}}
		if s.health != nil {
			status = s.health(r.Context())
		}
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.bound = ln.Addr().String()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("observability server starting", "addr", s.bound)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("observability server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the address the server is bound to once started.
func (s *Server) Addr() string {
	return s.bound
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
