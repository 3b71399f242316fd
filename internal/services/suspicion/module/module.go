// Package module wires the suspicion tracker and exposes its ports
package module

import (
	"doorman/internal/core/mimicry"
	"doorman/internal/modkit"
	dom "doorman/internal/services/suspicion/domain"
	"doorman/internal/services/suspicion/service"
)

// Ports holds the ports exposed by the suspicion module
type Ports struct {
	Tracker dom.TrackerPort
}

// Module defines the suspicion module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the suspicion module over the in-process mimicry classifier
func New(deps modkit.Deps, overrides Options) *Module {
	opts := FromConfig(deps.Cfg)

	if overrides.SampleSize != 0 {
		opts.SampleSize = overrides.SampleSize
	}
	if overrides.Threshold != 0 {
		opts.Threshold = overrides.Threshold
	}
	if overrides.MaxTracked != 0 {
		opts.MaxTracked = overrides.MaxTracked
	}

	svc := service.New(deps, service.Config{
		SampleSize: opts.SampleSize,
		Threshold:  opts.Threshold,
		MaxTracked: opts.MaxTracked,
	}, mimicry.New(deps.Log))

	m := &Module{deps: deps}
	m.ports = Ports{Tracker: svc}
	return m
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "suspicion" }
