package store

import "doorman/internal/platform/logger"

// Option mutates the Store at open time
type Option func(*Store) error

// WithLogger attaches the logger used during Open and by the SQL tracer
func WithLogger(l logger.Logger) Option {
	return func(s *Store) error {
		s.Log = l
		return nil
	}
}
