package module

import "doorman/internal/platform/config"

// Options controls the pipeline's restored checks
type Options struct {
	NameReportRunes   int
	NameBanRunes      int
	LookalikeBan      *bool
	LookalikeMinWords int
	HamReviewFloor    float64
	ProfileThreshold  float64
}

// FromConfig reads with MODERATION_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("MODERATION_")
	ban := c.MayBool("LOOKALIKE_BAN", true)
	return Options{
		NameReportRunes:   c.MayInt("NAME_REPORT_RUNES", 40),
		NameBanRunes:      c.MayInt("NAME_BAN_RUNES", 75),
		LookalikeBan:      &ban,
		LookalikeMinWords: c.MayInt("LOOKALIKE_MIN_WORDS", 3),
		HamReviewFloor:    c.MayFloat64("HAM_REVIEW_FLOOR", -0.6),
		ProfileThreshold:  c.MayFloat64("PROFILE_THRESHOLD", 0.7),
	}
}
