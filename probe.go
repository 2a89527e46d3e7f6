package dbprobe

import (
	"context"
	"net/http"

	"github.com/thisdougb/dbprobe/internal/config"
	"github.com/thisdougb/dbprobe/internal/connection"
	"github.com/thisdougb/dbprobe/internal/core"
	"github.com/thisdougb/dbprobe/internal/diagnostics"
	"github.com/thisdougb/dbprobe/internal/handlers"
	"github.com/thisdougb/dbprobe/internal/probe"
)

// Config is the probe configuration, see LoadConfig.
type Config = config.ProbeConfig

// Summary describes a finished run.
type Summary = probe.Summary

// DiagnosticQuery is one statement of a diagnostic battery.
type DiagnosticQuery = diagnostics.Query

// LoadConfig reads the probe configuration from a Java-style properties file.
func LoadConfig(path string) (Config, error) {
	return config.LoadProbeConfig(path)
}

// Probe measures query latency against one database. Each Probe owns its
// connection, so several can run side by side against different targets.
type Probe struct {
	cfg      Config
	registry *connection.Registry
	manager  *connection.Manager
	runner   *diagnostics.Runner
	state    *core.State
}

// NewProbe loads the configured driver and prepares the connection manager.
// A driver that cannot be loaded is logged; Run then fails to connect.
func NewProbe(ctx context.Context, cfg Config, identity string, rollingDataSize int) *Probe {
	registry := connection.NewRegistry()
	_ = registry.LoadDriver(ctx, cfg.DriverLocation, cfg.DriverIdentifier)

	manager := connection.NewManager(registry, cfg.ConnectionURL, cfg.Username, cfg.Password,
		connection.WithAttempts(cfg.ConnectAttempts),
		connection.WithRetryDelay(cfg.RetryDelay))

	return &Probe{
		cfg:      cfg,
		registry: registry,
		manager:  manager,
		runner:   diagnostics.NewRunner(),
		state:    core.NewState(identity, rollingDataSize),
	}
}

// SetDiagnostics replaces the diagnostic battery for an engine family
// ("mysql", "postgres" or "sqlite3").
func (p *Probe) SetDiagnostics(engine string, queries ...DiagnosticQuery) {
	p.runner.Register(diagnostics.NewProvider(engine, queries...))
}

// Run executes the measurement loop until the iterations are exhausted or
// ctx is cancelled.
func (p *Probe) Run(ctx context.Context) (Summary, error) {
	loop := probe.NewLoop(p.cfg, p.manager, p.runner, probe.WithRecorder(p.state))
	return loop.Run(ctx)
}

// Dump returns the live probe state as JSON.
func (p *Probe) Dump() string {
	return p.state.Dump()
}

// HealthHandler serves the live probe state as JSON.
func (p *Probe) HealthHandler() http.HandlerFunc {
	return handlers.HealthHandler(p.state)
}

// StatusHandler returns 200 UP while the last iteration succeeded, 503 DOWN otherwise.
func (p *Probe) StatusHandler() http.HandlerFunc {
	return handlers.StatusHandler(p.state)
}

// MetricsHandler serves Prometheus metrics for this probe.
func (p *Probe) MetricsHandler() http.Handler {
	return handlers.MetricsHandler(p.state.Collectors().Registry)
}

// Handler serves /health, /status and /metrics.
func (p *Probe) Handler() http.Handler {
	return handlers.NewMux(p.state, p.state.Collectors().Registry)
}
