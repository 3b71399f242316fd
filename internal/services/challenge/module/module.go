// Package module wires the challenge manager and exposes its ports
package module

import (
	"doorman/internal/modkit"
	dom "doorman/internal/services/challenge/domain"
	"doorman/internal/services/challenge/service"
)

// Ports holds the ports exposed by the challenge module
type Ports struct {
	Manager dom.ManagerPort
}

// Module defines the challenge module
type Module struct {
	deps  modkit.Deps
	svc   *service.Svc
	ports Ports
}

// New constructs the challenge module
func New(deps modkit.Deps, overrides Options, enforcer dom.Enforcer) *Module {
	opts := FromConfig(deps.Cfg)

	if overrides.Deadline != 0 {
		opts.Deadline = overrides.Deadline
	}
	if overrides.BanFor != 0 {
		opts.BanFor = overrides.BanFor
	}

	svc := service.New(deps, service.Config{
		Deadline: opts.Deadline,
		BanFor:   opts.BanFor,
	}, enforcer)

	m := &Module{deps: deps, svc: svc}
	m.ports = Ports{Manager: svc}
	return m
}

// Service exposes the concrete service for transport callbacks
func (m *Module) Service() *service.Svc { return m.svc }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "challenge" }
