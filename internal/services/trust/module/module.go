// Package module wires the trust service and exposes its ports
package module

import (
	"doorman/internal/modkit"
	"doorman/internal/services/trust/service"
)

// Module defines the trust module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the trust module with its ports
func New(deps modkit.Deps, overrides Options) *Module {
	opts := FromConfig(deps.Cfg)

	if overrides.ApproveAfter != 0 {
		opts.ApproveAfter = overrides.ApproveAfter
	}
	if overrides.SuspiciousApproveAfter != 0 {
		opts.SuspiciousApproveAfter = overrides.SuspiciousApproveAfter
	}
	if overrides.Scope != "" {
		opts.Scope = overrides.Scope
	}

	cfg := service.Config{
		ApproveAfter:           opts.ApproveAfter,
		SuspiciousApproveAfter: opts.SuspiciousApproveAfter,
		Scope:                  opts.Scope,
	}

	var svc *service.Svc
	if deps.PG != nil {
		svc = service.New(deps, cfg)
	} else {
		svc = service.NewMemory(deps, cfg)
	}

	m := &Module{deps: deps}
	m.ports = Ports{Store: svc}
	return m
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "trust" }
