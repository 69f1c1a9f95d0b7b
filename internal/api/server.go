package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sebakerckhof/ats-bridge/internal/ats"
	"github.com/sebakerckhof/ats-bridge/internal/infrastructure/config"
	"github.com/sebakerckhof/ats-bridge/internal/infrastructure/logging"
	"github.com/sebakerckhof/ats-bridge/internal/panel"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// commandTimeout bounds a single panel command issued over HTTP.
const commandTimeout = 10 * time.Second

// Coordinator is the panel surface the API serves. Satisfied by
// *panel.Coordinator; narrowed to an interface for testing.
type Coordinator interface {
	IsConnected() bool
	PanelInfo() ats.PanelInfo
	Entities(kind ats.EntityKind) []ats.Descriptor
	State(kind ats.EntityKind, number int) (ats.State, bool)
	RegisterGlobalListener(fn panel.Listener) func()
	SetForceArm(area int, enabled bool)
	ForceArm(area int) bool
	Stats() panel.Stats

	ArmArea(ctx context.Context, area int, mode ats.ArmMode) error
	DisarmArea(ctx context.Context, area int) error
	InhibitZone(ctx context.Context, zone int) error
	UninhibitZone(ctx context.Context, zone int) error
	ActivateOutput(ctx context.Context, output int) error
	DeactivateOutput(ctx context.Context, output int) error
	ActivateTrigger(ctx context.Context, trigger int) error
	DeactivateTrigger(ctx context.Context, trigger int) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Coordinator Coordinator
	Version     string
}

// Server is the HTTP API server for the ATS bridge.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	coord   Coordinator
	version string
	server  *http.Server
	hub     *Hub

	// relay cache: last broadcast payload per entity, so a coordinator
	// change event broadcasts only entities that actually moved.
	relayMu        sync.Mutex
	relayCache     map[relayKey][]byte
	relayConnected *bool

	unregister func()             // detaches the coordinator listener on Close()
	cancel     context.CancelFunc // cancels background goroutines on Close()
}

// relayKey identifies one entity's cached relay payload.
type relayKey struct {
	kind   ats.EntityKind
	number int
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, coordinator)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Coordinator == nil {
		return nil, fmt.Errorf("panel coordinator is required")
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		coord:      deps.Coordinator,
		version:    deps.Version,
		relayCache: make(map[relayKey][]byte),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, hooks the coordinator's
// change stream for real-time WebSocket broadcast, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Relay coordinator state changes to WebSocket clients.
	s.unregister = s.coord.RegisterGlobalListener(s.relayStateChanges)

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Detach from the coordinator and stop the hub.
	if s.unregister != nil {
		s.unregister()
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
