package modkit

import (
	"doorman/internal/modkit/repokit"
	"doorman/internal/platform/clock"
	"doorman/internal/platform/config"
	"doorman/internal/platform/logger"
	"doorman/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log   logger.Logger
	Cfg   config.Conf
	PG    repokit.TxRunner
	CH    store.Clickhouse
	Clock clock.Clock
	Sched *clock.Scheduler
}

// Now is a nil safe clock read, zero deps fall back to system time
func (d Deps) Now() clock.Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return clock.System{}
}
