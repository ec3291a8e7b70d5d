// Package server exposes the balancer's HTTP surface: the admin endpoints
// for membership, liveness and metrics, plus the fallback route that hands
// everything else to the proxy dispatcher.
package server

import (
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"klein/internal/health"
	"klein/internal/membership"
	"klein/internal/proxy"
	"klein/internal/ring"
	"klein/internal/state"
)

// Server binds the components behind the HTTP route table.
type Server struct {
	pool       *ring.Pool
	manager    *membership.Manager
	monitor    *health.Monitor
	dispatcher *proxy.Dispatcher
	src        *state.Source
	registry   *prometheus.Registry
	logger     *zap.Logger

	// Unix time of the last /heartbeat request.
	lastHeartbeat atomic.Int64
}

// New wires the server to its collaborators.
func New(pool *ring.Pool, manager *membership.Manager, monitor *health.Monitor, dispatcher *proxy.Dispatcher, src *state.Source, registry *prometheus.Registry, logger *zap.Logger) *Server {
	return &Server{
		pool:       pool,
		manager:    manager,
		monitor:    monitor,
		dispatcher: dispatcher,
		src:        src,
		registry:   registry,
		logger:     logger,
	}
}

// Router builds the HTTP route table. Any request that matches no admin
// route, by path or by method, falls through to the proxy dispatcher.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/home", s.handleHome)
	r.Get("/heartbeat", s.handleHeartbeat)
	r.Get("/rep", s.handleRep)
	r.Post("/add", s.handleAdd)
	r.Post("/rm", s.handleRemove)
	r.Delete("/rm", s.handleRemove)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.NotFound(s.dispatcher.ServeHTTP)
	r.MethodNotAllowed(s.dispatcher.ServeHTTP)

	return r
}
