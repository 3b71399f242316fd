// Package service implements the suspicion tracker
package service

import (
	"context"
	"sync"

	"doorman/internal/modkit"
	"doorman/internal/platform/logger"
	dom "doorman/internal/services/suspicion/domain"
)

// Config controls sampling
type Config struct {
	// SampleSize messages are buffered before the one classification
	SampleSize int

	// Threshold at or above which a sample is suspicious
	Threshold float64

	// MaxTracked bounds the scored set, oldest keys are evicted first
	// an evicted user may be sampled again, the trust record still
	// carries the lasting outcome
	MaxTracked int
}

type pairKey struct {
	chat int64
	user int64
}

// Svc implements dom.TrackerPort
// one classification per key, the raw text buffer never outlives it
type Svc struct {
	log    logger.Logger
	scorer dom.Scorer
	cfg    Config

	mu      sync.Mutex
	buffers map[pairKey][]string
	scored  map[pairKey]struct{}
	order   []pairKey
}

// New constructs the tracker
func New(deps modkit.Deps, cfg Config, scorer dom.Scorer) *Svc {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 3
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.7
	}
	if cfg.MaxTracked <= 0 {
		cfg.MaxTracked = 10000
	}
	return &Svc{
		log:     deps.Log,
		scorer:  scorer,
		cfg:     cfg,
		buffers: make(map[pairKey][]string),
		scored:  make(map[pairKey]struct{}),
	}
}

// Observe buffers text and classifies exactly once when the sample fills
func (s *Svc) Observe(ctx context.Context, chatID, userID int64, text string) (dom.Signal, float64) {
	key := pairKey{chatID, userID}

	s.mu.Lock()
	if _, done := s.scored[key]; done {
		s.mu.Unlock()
		return dom.SignalNone, 0
	}

	buf := append(s.buffers[key], text)
	if len(buf) < s.cfg.SampleSize {
		s.buffers[key] = buf
		s.mu.Unlock()
		return dom.SignalNone, 0
	}

	// sample complete, drop the raw text and never classify this key again
	delete(s.buffers, key)
	if len(s.order) >= s.cfg.MaxTracked {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.scored, oldest)
	}
	s.scored[key] = struct{}{}
	s.order = append(s.order, key)
	s.mu.Unlock()

	score := s.scorer.Score(buf)

	s.log.Debug().Int64("chat_id", chatID).Int64("user_id", userID).
		Float64("score", score).Msg("first messages classified")

	if score >= s.cfg.Threshold {
		return dom.SignalSuspiciousNow, score
	}
	return dom.SignalReadyForApproval, score
}

// Forget drops the buffer and the scored marker for the key
func (s *Svc) Forget(chatID, userID int64) {
	key := pairKey{chatID, userID}
	s.mu.Lock()
	delete(s.buffers, key)
	if _, ok := s.scored[key]; ok {
		delete(s.scored, key)
		for i, k := range s.order {
			if k == key {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
}
