// Package dashboard serves the road network report over HTTP with live
// refresh events.
package dashboard

import (
	"github.com/efebarandurmaz/roadnet/internal/metrics"
	"github.com/efebarandurmaz/roadnet/internal/observability"
	"github.com/efebarandurmaz/roadnet/internal/server"
)

// Dashboard ties together all dashboard components.
type Dashboard struct {
	Server *Server
	Store  *Store
	Hub    *Hub
}

// New creates a fully wired dashboard reading from src.
func New(config *Config, src metrics.Source, engine *metrics.Engine, m *observability.Metrics, health *server.HealthServer) *Dashboard {
	store := NewStore()
	hub := NewHub()
	if health != nil {
		health.RegisterCheck("report", server.ReportAgeHealthChecker(store.ComputedAt, 0))
	}
	return &Dashboard{
		Server: NewServer(config, src, engine, store, hub, m, health),
		Store:  store,
		Hub:    hub,
	}
}
