package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/terratap-core/internal/hub"
	"github.com/nerrad567/terratap-core/internal/infrastructure/config"
	"github.com/nerrad567/terratap-core/internal/infrastructure/logging"
	"github.com/nerrad567/terratap-core/internal/process"
	"github.com/nerrad567/terratap-core/internal/state"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// healthCheckTimeout bounds each dependency check made by the health endpoint.
const healthCheckTimeout = 2 * time.Second

// HealthChecker is implemented by every infrastructure client the hub owns
// (MQTT, database, InfluxDB).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	State    *state.SharedState
	Registry *hub.Registry
	Gatherer prometheus.Gatherer      // optional: /metrics is not mounted without it
	Broker   *process.Manager         // optional: nil when the broker is not managed
	Checks   map[string]HealthChecker // optional: keyed by dependency name
	Version  string
}

// Server is the status HTTP server of the hub.
//
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	state    *state.SharedState
	registry *hub.Registry
	gatherer prometheus.Gatherer
	broker   *process.Manager
	checks   map[string]HealthChecker
	version  string

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.State == nil {
		return nil, fmt.Errorf("shared state is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("module registry is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		state:    deps.State,
		registry: deps.Registry,
		gatherer: deps.Gatherer,
		broker:   deps.Broker,
		checks:   deps.Checks,
		version:  deps.Version,
	}, nil
}

// Start binds the listener and serves in a background goroutine.
// Binding errors (port in use, bad host) are returned directly.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("listening for API: %w", err)
	}

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
	s.addr = ln.Addr()

	s.logger.Info("API server listening", "address", s.addr.String())

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
