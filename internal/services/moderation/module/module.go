// Package module wires the moderation pipeline and exposes its ports
package module

import (
	"doorman/internal/modkit"
	"doorman/internal/services/moderation/domain"
	"doorman/internal/services/moderation/service"
)

// Module defines the moderation module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// Ports exposed to the transport layer
type Ports struct {
	Pipeline domain.PipelinePort
}

// New constructs the pipeline from its collaborators
// optional adapters in sdeps may be nil, the pipeline degrades around them
func New(deps modkit.Deps, overrides Options, sdeps service.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	if overrides.NameReportRunes != 0 {
		opts.NameReportRunes = overrides.NameReportRunes
	}
	if overrides.NameBanRunes != 0 {
		opts.NameBanRunes = overrides.NameBanRunes
	}
	if overrides.LookalikeBan != nil {
		opts.LookalikeBan = overrides.LookalikeBan
	}
	if overrides.LookalikeMinWords != 0 {
		opts.LookalikeMinWords = overrides.LookalikeMinWords
	}
	if overrides.HamReviewFloor != 0 {
		opts.HamReviewFloor = overrides.HamReviewFloor
	}
	if overrides.ProfileThreshold != 0 {
		opts.ProfileThreshold = overrides.ProfileThreshold
	}

	sdeps.Log = deps.Log
	svc := service.New(sdeps, service.Config{
		NameReportRunes:   opts.NameReportRunes,
		NameBanRunes:      opts.NameBanRunes,
		LookalikeDelete:   opts.LookalikeBan != nil && !*opts.LookalikeBan,
		LookalikeMinWords: opts.LookalikeMinWords,
		HamReviewFloor:    opts.HamReviewFloor,
		ProfileThreshold:  opts.ProfileThreshold,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Pipeline: svc}
	return m
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "moderation" }
