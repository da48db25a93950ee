// Package server exposes the HTTP surface of the connector: health and
// Prometheus endpoints plus a small read-only JSON API over the
// processing status.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/felixwingard/garp-shipping-connector/internal/status"
	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
)

// Config holds server configuration.
type Config struct {
	Port    int
	Version string
}

// Server is the HTTP server for the connector API.
type Server struct {
	port     int
	version  string
	registry *carrier.Registry
	store    *status.Store
	logger   *otelzap.Logger
}

// New creates a new server instance.
func New(cfg Config, registry *carrier.Registry, store *status.Store, logger *otelzap.Logger) *Server {
	return &Server{
		port:     cfg.Port,
		version:  cfg.Version,
		registry: registry,
		store:    store,
		logger:   logger,
	}
}

// Handler returns the route table. It is split out from Run so tests can
// exercise the routes without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/carriers", s.handleCarriers)

	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled
// or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := s.store.Snapshot()
	s.writeJSON(w, map[string]interface{}{
		"version": s.version,
		"status":  snapshot,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"events": s.store.Events(),
	})
}

// carrierView describes a registered carrier and its optional
// capabilities.
type carrierView struct {
	Name          string `json:"name"`
	ShipmentList  bool   `json:"shipmentList"`
	Pickup        bool   `json:"pickup"`
	ServicePoints bool   `json:"servicePoints"`
}

func (s *Server) handleCarriers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	names := s.registry.Names()
	views := make([]carrierView, 0, len(names))
	for _, name := range names {
		c, err := s.registry.Get(name)
		if err != nil {
			continue
		}

		_, lists := c.(carrier.DocumentLister)
		_, picks := c.(carrier.PickupBooker)
		_, finds := c.(carrier.ServicePointFinder)
		views = append(views, carrierView{
			Name:          c.Name(),
			ShipmentList:  lists,
			Pickup:        picks,
			ServicePoints: finds,
		})
	}

	s.writeJSON(w, map[string]interface{}{
		"carriers": views,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}
