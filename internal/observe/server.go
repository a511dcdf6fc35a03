package observe

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// HealthCheck probes one dependency. Name shows up in the health payload.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// AdminServer serves /healthz and /metrics. It is an operational surface
// only; analysis queries never go through HTTP.
type AdminServer struct {
	server *http.Server
	checks []HealthCheck
}

// NewAdminServer builds the admin server on addr.
func NewAdminServer(addr string, gatherer prometheus.Gatherer, checks ...HealthCheck) *AdminServer {
	s := &AdminServer{checks: checks}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves in a background goroutine.
func (s *AdminServer) Start() {
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("Admin server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Admin server stopped")
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	result := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			result[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			result[c.Name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}
