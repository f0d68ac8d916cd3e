package statusserver

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server exposes the health probe and prometheus metrics of the monitor. It
// observes the pipeline through the monitor's event subscription, the
// pipeline itself has no dependency on it.
type Server struct {
	monitorService     types.MonitorService
	config             *types.Config
	metrics            *metrics
	httpServer         *http.Server
	listener           net.Listener
	cancelSubscription func()
}

func New(monitorService types.MonitorService, config *types.Config) *Server {
	server := &Server{
		monitorService: monitorService,
		config:         config,
		metrics:        newMetrics(),
	}
	// the monitor workers start before Start runs, the subscription cannot
	// wait until then or it misses the first connect message
	server.cancelSubscription = monitorService.SubscribeToEvents(func(_ context.Context, anyMessage any) {
		server.metrics.observe(anyMessage)
	})
	return server
}

func (s *Server) Start(ctx context.Context) error {
	if s.config.StatusAddr == "" {
		slog.Info("status server disabled")
		return nil
	}

	slog.Info("starting status server", slog.String("addr", s.config.StatusAddr))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:    s.config.StatusAddr,
		Handler: mux,
	}

	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to setup listener for status server: %w", err)
	}
	s.listener = lis

	go s.httpServer.Serve(lis)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.cancelSubscription != nil {
		s.cancelSubscription()
	}
	if s.httpServer == nil {
		return nil
	}

	slog.Info("shutting down status server")
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status            string     `json:"status"`
	Node              string     `json:"node"`
	UptimeSeconds     int64      `json:"uptime_seconds"`
	SourceConnected   bool       `json:"source_connected"`
	DisconnectedSince *time.Time `json:"disconnected_since,omitempty"`
	LastEventAt       *time.Time `json:"last_event_at,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	health := s.monitorService.Health()

	response := healthResponse{
		Status:            "ok",
		Node:              s.config.NodeName,
		UptimeSeconds:     int64(time.Now().Sub(health.StartedAt).Seconds()),
		SourceConnected:   health.SourceConnected,
		DisconnectedSince: health.DisconnectedSince,
		LastEventAt:       health.LastEventAt,
	}

	statusCode := http.StatusOK
	if !health.SourceConnected {
		response.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
