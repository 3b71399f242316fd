// Package service implements the challenge manager
package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"doorman/internal/core/captcha"
	"doorman/internal/modkit"
	"doorman/internal/platform/clock"
	"doorman/internal/platform/logger"
	dom "doorman/internal/services/challenge/domain"
)

// Config controls challenge timing
type Config struct {
	// Deadline is how long the user has to answer
	Deadline time.Duration

	// BanFor is the restriction window after a wrong or missed answer
	BanFor time.Duration
}

type pairKey struct {
	chat int64
	user int64
}

// live is one pending challenge with its deadline timer
type live struct {
	ch     dom.Challenge
	handle *clock.Handle
}

// Svc implements dom.ManagerPort
// all state is in process, a restart simply reissues challenges on next join
type Svc struct {
	log      logger.Logger
	clk      clock.Clock
	sched    *clock.Scheduler
	enforcer dom.Enforcer
	cfg      Config

	// OnExpired is called outside the lock after a deadline fires,
	// the transport uses it to clean up the prompt message
	OnExpired func(dom.Challenge)

	mu      sync.Mutex
	pending map[pairKey]*live
	rng     *rand.Rand
}

// New constructs the manager
// enforcer may be nil, consequences are then the caller's problem
func New(deps modkit.Deps, cfg Config, enforcer dom.Enforcer) *Svc {
	if cfg.Deadline <= 0 {
		cfg.Deadline = 45 * time.Second
	}
	if cfg.BanFor <= 0 {
		cfg.BanFor = 20 * time.Minute
	}
	return &Svc{
		log:      deps.Log,
		clk:      deps.Now(),
		sched:    deps.Sched,
		enforcer: enforcer,
		cfg:      cfg,
		pending:  make(map[pairKey]*live),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Issue creates a challenge unless one is already live for the key
func (s *Svc) Issue(ctx context.Context, chatID, userID int64, joinRef string) (dom.Challenge, dom.IssueStatus) {
	key := pairKey{chatID, userID}

	s.mu.Lock()
	if l, ok := s.pending[key]; ok {
		ch := l.ch
		s.mu.Unlock()
		return ch, dom.AlreadyPending
	}

	now := s.clk.Now()
	ch := dom.Challenge{
		ChatID:   chatID,
		UserID:   userID,
		Puzzle:   captcha.Generate(s.rng),
		IssuedAt: now,
		Deadline: now.Add(s.cfg.Deadline),
		JoinRef:  joinRef,
		Outcome:  dom.OutcomePending,
	}
	l := &live{ch: ch}
	if s.sched != nil {
		l.handle = s.sched.Schedule(ch.Deadline, func() { s.expire(key) })
	}
	s.pending[key] = l
	s.mu.Unlock()

	s.log.Debug().Int64("chat_id", chatID).Int64("user_id", userID).
		Time("deadline", ch.Deadline).Msg("challenge issued")
	return ch, dom.Issued
}

// Resolve finalizes the live challenge exactly once
func (s *Svc) Resolve(ctx context.Context, chatID, userID int64, answer int) (dom.Challenge, dom.ResolveStatus) {
	key := pairKey{chatID, userID}

	s.mu.Lock()
	l, ok := s.pending[key]
	if !ok {
		s.mu.Unlock()
		return dom.Challenge{}, dom.NotFound
	}
	delete(s.pending, key)
	if l.ch.Puzzle.Answer == answer {
		l.ch.Outcome = dom.OutcomeCorrect
	} else {
		l.ch.Outcome = dom.OutcomeIncorrect
	}
	ch := l.ch
	s.mu.Unlock()

	// a cancelled timer never fires on this instance
	if l.handle != nil {
		l.handle.Cancel()
	}

	if ch.Outcome == dom.OutcomeIncorrect {
		s.punish(ctx, ch)
	}

	s.log.Info().Int64("chat_id", chatID).Int64("user_id", userID).
		Str("outcome", string(ch.Outcome)).Msg("challenge resolved")
	return ch, dom.Resolved
}

// ExpireOverdue finalizes every live challenge past its deadline
func (s *Svc) ExpireOverdue(ctx context.Context) []dom.Challenge {
	now := s.clk.Now()

	s.mu.Lock()
	var overdue []*live
	for key, l := range s.pending {
		if l.ch.Deadline.After(now) {
			continue
		}
		delete(s.pending, key)
		l.ch.Outcome = dom.OutcomeExpired
		overdue = append(overdue, l)
	}
	s.mu.Unlock()

	out := make([]dom.Challenge, 0, len(overdue))
	for _, l := range overdue {
		if l.handle != nil {
			l.handle.Cancel()
		}
		s.punish(ctx, l.ch)
		out = append(out, l.ch)
	}
	return out
}

// Pending reports whether a live challenge exists for the key
func (s *Svc) Pending(chatID, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[pairKey{chatID, userID}]
	return ok
}

// expire is the scheduled deadline action for one key
func (s *Svc) expire(key pairKey) {
	s.mu.Lock()
	l, ok := s.pending[key]
	if !ok {
		// resolved first, nothing to do
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	l.ch.Outcome = dom.OutcomeExpired
	ch := l.ch
	s.mu.Unlock()

	s.log.Info().Int64("chat_id", ch.ChatID).Int64("user_id", ch.UserID).
		Msg("challenge expired")

	s.punish(context.Background(), ch)
	if s.OnExpired != nil {
		s.OnExpired(ch)
	}
}

// punish applies the temporary restriction and schedules its lift
func (s *Svc) punish(ctx context.Context, ch dom.Challenge) {
	if s.enforcer == nil {
		return
	}
	until := s.clk.Now().Add(s.cfg.BanFor)
	if err := s.enforcer.TempBan(ctx, ch.ChatID, ch.UserID, until); err != nil {
		s.log.Error().Err(err).Int64("chat_id", ch.ChatID).Int64("user_id", ch.UserID).
			Msg("temp ban failed")
		return
	}
	if s.sched == nil {
		return
	}
	s.sched.Schedule(until, func() {
		if err := s.enforcer.LiftBan(context.Background(), ch.ChatID, ch.UserID); err != nil {
			s.log.Error().Err(err).Int64("chat_id", ch.ChatID).Int64("user_id", ch.UserID).
				Msg("ban lift failed")
		}
	})
}
