package module

import "doorman/internal/platform/config"

// Options controls sampling
type Options struct {
	SampleSize int
	Threshold  float64
	MaxTracked int
}

// FromConfig reads with SUSPICION_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("SUSPICION_")
	return Options{
		SampleSize: c.MayInt("SAMPLE_SIZE", 3),
		Threshold:  c.MayFloat64("MIMICRY_THRESHOLD", 0.7),
		MaxTracked: c.MayInt("MAX_TRACKED", 10000),
	}
}
