package module

import (
	"time"

	"doorman/internal/platform/config"
)

// Options controls challenge timing
type Options struct {
	Deadline time.Duration
	BanFor   time.Duration
}

// FromConfig reads with CHALLENGE_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CHALLENGE_")
	return Options{
		Deadline: c.MayDuration("DEADLINE", 45*time.Second),
		BanFor:   c.MayDuration("BAN_FOR", 20*time.Minute),
	}
}
