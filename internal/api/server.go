// Package api provides the admin HTTP API and WebSocket event stream.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/telemetry-core/internal/audit"
	"github.com/nerrad567/telemetry-core/internal/automation"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// RuleStore is the rule set managed through the API.
// *automation.Registry satisfies it.
type RuleStore interface {
	List() []automation.Rule
	Add(ctx context.Context, rule automation.Rule) error
	Remove(ctx context.Context, watch, do string) error
}

// ValueSource exposes the latest value seen per channel.
// *automation.Tracker satisfies it.
type ValueSource interface {
	Snapshot() map[string]float64
}

// TriggerSource exposes armed delayed triggers.
// *automation.Engine satisfies it.
type TriggerSource interface {
	PendingTriggers() []automation.PendingTrigger
}

// AuditStore records rule set changes.
// *audit.SQLiteRepository satisfies it.
type AuditStore interface {
	Create(ctx context.Context, entry *audit.Entry) error
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// HealthChecker is implemented by infrastructure clients reported by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Rules    RuleStore
	Values   ValueSource   // optional
	Triggers TriggerSource // optional
	Audit    AuditStore    // optional

	// Hub, if set, is used instead of a server-owned hub. The caller runs it.
	Hub *Hub

	// Registry, if set, serves /metrics and records HTTP metrics.
	Registry *prometheus.Registry

	// Checks are reported by /health under their map key.
	Checks map[string]HealthChecker

	Version string
}

// Server is the admin HTTP server.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	rules       RuleStore
	values      ValueSource
	triggers    TriggerSource
	audit       AuditStore
	registry    *prometheus.Registry
	metrics     *httpMetrics
	checks      map[string]HealthChecker
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates an API server. The server is not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Rules == nil {
		return nil, fmt.Errorf("rule store is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		secCfg:   deps.Security,
		logger:   deps.Logger,
		rules:    deps.Rules,
		values:   deps.Values,
		triggers: deps.Triggers,
		audit:    deps.Audit,
		registry: deps.Registry,
		checks:   deps.Checks,
		version:  deps.Version,
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}

	if deps.Registry != nil {
		m, err := newHTTPMetrics(deps.Registry, s.hub)
		if err != nil {
			return nil, err
		}
		s.metrics = m
	}

	return s, nil
}

// Hub returns the WebSocket hub used for event broadcasts.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	if s.secCfg.JWT.Secret == "" {
		s.logger.Warn("JWT secret not set; admin API is unauthenticated")
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
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

// HealthCheck reports whether the server has been started.
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
