// Package module wires the audit recorder and exposes its ports
package module

import (
	"time"

	"doorman/internal/modkit"
	"doorman/internal/services/audit/domain"
	"doorman/internal/services/audit/service"
)

// Module defines the audit module
type Module struct {
	deps  modkit.Deps
	ports Ports
	svc   *service.Svc
}

// Ports exposed to the pipeline and the admin API
type Ports struct {
	Recorder domain.RecorderPort
}

// Options controls the flusher
type Options struct {
	BatchSize  int
	FlushEvery time.Duration
}

// FromConfig reads with AUDIT_ prefix
func FromConfig(deps modkit.Deps) Options {
	c := deps.Cfg.Prefix("AUDIT_")
	return Options{
		BatchSize:  c.MayInt("BATCH_SIZE", 200),
		FlushEvery: c.MayDuration("FLUSH_EVERY", 5*time.Second),
	}
}

// New constructs the audit module, a nil deps.CH disables the log sink
func New(deps modkit.Deps, overrides Options) *Module {
	opts := FromConfig(deps)
	if overrides.BatchSize != 0 {
		opts.BatchSize = overrides.BatchSize
	}
	if overrides.FlushEvery != 0 {
		opts.FlushEvery = overrides.FlushEvery
	}

	svc := service.New(deps.Log, deps.CH, deps.Now(), service.Config{
		BatchSize:  opts.BatchSize,
		FlushEvery: opts.FlushEvery,
	})

	m := &Module{deps: deps, svc: svc}
	m.ports = Ports{Recorder: svc}
	return m
}

// Service returns the concrete recorder for lifecycle management
func (m *Module) Service() *service.Svc { return m.svc }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "audit" }
