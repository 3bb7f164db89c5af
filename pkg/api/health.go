package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cuemby/autoheal/pkg/log"
	"github.com/cuemby/autoheal/pkg/metrics"
)

// HealthServer provides HTTP health check and metrics endpoints
type HealthServer struct {
	mux    *http.ServeMux
	server *http.Server
}

// NewHealthServer creates a new health check HTTP server
func NewHealthServer() *HealthServer {
	mux := http.NewServeMux()
	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	hs := &HealthServer{mux: mux, server: server}

	// Register endpoints
	mux.HandleFunc("/health", getOnly(metrics.HealthHandler()))
	mux.HandleFunc("/ready", getOnly(metrics.ReadyHandler()))
	mux.HandleFunc("/live", getOnly(metrics.LivenessHandler()))
	mux.Handle("/metrics", metrics.Handler())

	return hs
}

// Start listens on addr and serves until Shutdown is called. It returns
// nil after a clean shutdown.
func (hs *HealthServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return hs.Serve(lis)
}

// Serve serves on an existing listener. If Shutdown has already been
// called the listener is closed and Serve returns nil at once.
func (hs *HealthServer) Serve(lis net.Listener) error {
	log.Logger.Info().Str("addr", lis.Addr().String()).Msg("Health endpoint listening")

	if err := hs.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server. It may be called before Serve.
func (hs *HealthServer) Shutdown(ctx context.Context) error {
	return hs.server.Shutdown(ctx)
}

// GetHandler returns the HTTP handler for embedding in other servers
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
