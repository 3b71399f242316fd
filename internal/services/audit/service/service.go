// Package service implements the decision audit log
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"doorman/internal/platform/clock"
	"doorman/internal/platform/logger"
	"doorman/internal/platform/store"
	"doorman/internal/services/audit/domain"
	moddom "doorman/internal/services/moderation/domain"
)

const decisionsTable = "moderation_decisions"

var decisionColumns = []string{
	"id", "ts", "chat_id", "user_id", "event", "action", "reason", "confidence", "source",
}

// Config tunes the background flusher
type Config struct {
	// BatchSize flushes early when this many rows are buffered
	BatchSize int

	// FlushEvery is the periodic flush interval
	FlushEvery time.Duration
}

func (c *Config) defaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 200
	}
	if c.FlushEvery == 0 {
		c.FlushEvery = 5 * time.Second
	}
}

// Svc buffers decisions and flushes them to ClickHouse in batches
// a nil ClickHouse backend keeps the counters and drops the rows
type Svc struct {
	log logger.Logger
	ch  store.Clickhouse
	clk clock.Clock
	cfg Config

	mu    sync.Mutex
	rows  [][]any
	stats map[int64]*domain.ChatStats
	kick  chan struct{}
}

// New builds the audit recorder
func New(log logger.Logger, ch store.Clickhouse, clk clock.Clock, cfg Config) *Svc {
	cfg.defaults()
	if clk == nil {
		clk = clock.System{}
	}
	return &Svc{
		log:   log.With().Str("service", "audit").Logger(),
		ch:    ch,
		clk:   clk,
		cfg:   cfg,
		stats: make(map[int64]*domain.ChatStats),
		kick:  make(chan struct{}, 1),
	}
}

// RecordDecision counts the decision and queues the row, never blocks
func (s *Svc) RecordDecision(ctx context.Context, ev moddom.Event, d moddom.Decision) {
	s.mu.Lock()
	s.count(ev.ChatID, d)
	full := false
	if s.ch != nil {
		s.rows = append(s.rows, []any{
			uuid.New(),
			s.clk.Now(),
			ev.ChatID,
			ev.UserID,
			string(ev.Type),
			string(d.Action),
			d.Reason,
			d.Confidence,
			source(d.Reason),
		})
		full = len(s.rows) >= s.cfg.BatchSize
	}
	s.mu.Unlock()

	if full {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// count must run under s.mu
func (s *Svc) count(chatID int64, d moddom.Decision) {
	st := s.stats[chatID]
	if st == nil {
		st = &domain.ChatStats{ChatID: chatID}
		s.stats[chatID] = st
	}
	switch d.Action {
	case moddom.ActionBan:
		if strings.HasPrefix(d.Reason, "blacklisted") {
			st.BlacklistBans++
		}
	case moddom.ActionChallenge:
		st.ChallengeStops++
	case moddom.ActionDelete:
		st.SpamDeletions++
	case moddom.ActionRequireManualReview:
		st.ManualReviews++
	case moddom.ActionAllow:
		st.MessagesAllowed++
	}
}

// Stats snapshots one chat's counters
func (s *Svc) Stats(chatID int64) domain.ChatStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.stats[chatID]; st != nil {
		return *st
	}
	return domain.ChatStats{ChatID: chatID}
}

// AllStats snapshots every chat seen since start
func (s *Svc) AllStats() []domain.ChatStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatStats, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, *st)
	}
	return out
}

// Flush writes buffered rows out, write failures are logged not returned
// to the pipeline, the decision already happened
func (s *Svc) Flush(ctx context.Context) error {
	s.mu.Lock()
	rows := s.rows
	s.rows = nil
	s.mu.Unlock()

	if len(rows) == 0 || s.ch == nil {
		return nil
	}
	if err := s.ch.Insert(ctx, decisionsTable, decisionColumns, rows); err != nil {
		s.log.Error().Err(err).Int("rows", len(rows)).Msg("audit flush failed")
		return err
	}
	s.log.Debug().Int("rows", len(rows)).Msg("audit flushed")
	return nil
}

// Run flushes on a timer until ctx is done, then drains once
func (s *Svc) Run(ctx context.Context) {
	t := time.NewTicker(s.cfg.FlushEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = s.Flush(flushCtx)
			cancel()
			return
		case <-t.C:
			_ = s.Flush(ctx)
		case <-s.kick:
			_ = s.Flush(ctx)
		}
	}
}

// source extracts the signal family from a reason like "classifier: spam"
func source(reason string) string {
	if i := strings.IndexByte(reason, ':'); i > 0 {
		return reason[:i]
	}
	return reason
}
