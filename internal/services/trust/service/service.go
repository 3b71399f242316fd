// Package service implements the trust lifecycle state machine
package service

import (
	"context"
	"time"

	"doorman/internal/modkit"
	"doorman/internal/modkit/repokit"
	"doorman/internal/platform/logger"
	"doorman/internal/services/trust/domain"
	trepo "doorman/internal/services/trust/repo"
)

// Config holds the trust thresholds
type Config struct {
	// ApproveAfter clean messages promote Tracking to Approved
	ApproveAfter int

	// SuspiciousApproveAfter clean messages promote Suspicious to Approved
	// the counter restarts when suspicion is raised
	SuspiciousApproveAfter int

	// Scope picks what an earned approval covers
	Scope domain.ApprovalScope
}

// Svc implements domain.StorePort
type Svc struct {
	log    logger.Logger
	db     repokit.TxRunner
	binder repokit.Binder[trepo.Repo]
	repo   trepo.Repo
	cfg    Config
	deps   modkit.Deps

	keys keyMutex
}

// New constructs the service over the Postgres repo
func New(deps modkit.Deps, cfg Config) *Svc {
	b := trepo.NewPG()
	return newWith(deps, cfg, b, b.Bind(deps.PG), deps.PG)
}

// NewMemory constructs the service over the in-memory repo
func NewMemory(deps modkit.Deps, cfg Config) *Svc {
	mem := trepo.NewMemory()
	b := repokit.BindFunc[trepo.Repo](func(repokit.Queryer) trepo.Repo { return mem })
	return newWith(deps, cfg, b, mem, nil)
}

func newWith(deps modkit.Deps, cfg Config, b repokit.Binder[trepo.Repo], r trepo.Repo, db repokit.TxRunner) *Svc {
	if cfg.ApproveAfter <= 0 {
		cfg.ApproveAfter = 3
	}
	if cfg.SuspiciousApproveAfter <= 0 {
		cfg.SuspiciousApproveAfter = 3
	}
	if cfg.Scope == "" {
		cfg.Scope = domain.ScopeGlobal
	}
	return &Svc{
		log:    deps.Log,
		db:     db,
		binder: b,
		repo:   r,
		cfg:    cfg,
		deps:   deps,
	}
}

// withRepo runs fn transactionally when a database is wired, directly otherwise
func (s *Svc) withRepo(ctx context.Context, fn func(r trepo.Repo) error) error {
	if s.db != nil {
		return repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
			return fn(repokit.MustBind(s.binder, q))
		})
	}
	return fn(s.repo)
}

// approvalChat maps the configured scope onto an approval row key
func (s *Svc) approvalChat(chatID int64) int64 {
	if s.cfg.Scope == domain.ScopeGlobal {
		return domain.GlobalChatID
	}
	return chatID
}

// ensure creates a Tracking record when none exists, caller holds the key lock
func (s *Svc) ensure(ctx context.Context, r trepo.Repo, chatID, userID int64) (domain.Record, error) {
	rec, ok, err := r.Get(ctx, chatID, userID)
	if err != nil {
		return domain.Record{}, err
	}
	if ok {
		return rec, nil
	}
	rec = domain.Record{
		ChatID: chatID,
		UserID: userID,
		State:  domain.StateTracking,
	}
	if err := r.Upsert(ctx, rec); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

// Get returns the record for the pair, creating a Tracking one lazily
func (s *Svc) Get(ctx context.Context, chatID, userID int64) (domain.Record, error) {
	mu := s.keys.lock(chatID, userID)
	defer mu.Unlock()

	var rec domain.Record
	err := s.withRepo(ctx, func(r trepo.Repo) error {
		var err error
		rec, err = s.ensure(ctx, r, chatID, userID)
		return err
	})
	return rec, err
}

// RecordCleanMessage increments the clean counter and promotes on threshold
// approved users keep their count frozen, the increment is skipped
func (s *Svc) RecordCleanMessage(ctx context.Context, chatID, userID int64) (int, bool, error) {
	mu := s.keys.lock(chatID, userID)
	defer mu.Unlock()

	var count int
	var promoted bool
	err := s.withRepo(ctx, func(r trepo.Repo) error {
		rec, err := s.ensure(ctx, r, chatID, userID)
		if err != nil {
			return err
		}
		if rec.State == domain.StateApproved {
			count = rec.CleanMessageCount
			return nil
		}

		count, err = r.IncrementClean(ctx, chatID, userID)
		if err != nil {
			return err
		}

		threshold := s.cfg.ApproveAfter
		if rec.State == domain.StateSuspicious {
			threshold = s.cfg.SuspiciousApproveAfter
		}
		if count < threshold {
			return nil
		}

		if err := r.SetState(ctx, chatID, userID, domain.StateApproved, rec.SuspicionScore); err != nil {
			return err
		}
		if err := r.AddApproval(ctx, s.approvalChat(chatID), userID); err != nil {
			return err
		}
		promoted = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	if promoted {
		s.log.Info().Int64("chat_id", chatID).Int64("user_id", userID).
			Int("clean_count", count).Msg("user approved")
	}
	return count, promoted, nil
}

// MarkSuspicious moves the user onto the suspicion track
// the clean counter restarts so approval requires fresh clean messages
func (s *Svc) MarkSuspicious(ctx context.Context, chatID, userID int64, score float64) error {
	mu := s.keys.lock(chatID, userID)
	defer mu.Unlock()

	return s.withRepo(ctx, func(r trepo.Repo) error {
		rec, err := s.ensure(ctx, r, chatID, userID)
		if err != nil {
			return err
		}
		if rec.State == domain.StateApproved {
			// suspicion never demotes an approved user
			return nil
		}
		rec.State = domain.StateSuspicious
		rec.SuspicionScore = score
		rec.CleanMessageCount = 0
		return r.Upsert(ctx, rec)
	})
}

// Approve force-promotes the user regardless of counters
func (s *Svc) Approve(ctx context.Context, chatID, userID int64) error {
	mu := s.keys.lock(chatID, userID)
	defer mu.Unlock()

	return s.withRepo(ctx, func(r trepo.Repo) error {
		rec, err := s.ensure(ctx, r, chatID, userID)
		if err != nil {
			return err
		}
		if err := r.SetState(ctx, chatID, userID, domain.StateApproved, rec.SuspicionScore); err != nil {
			return err
		}
		return r.AddApproval(ctx, s.approvalChat(chatID), userID)
	})
}

// Ban records the ban and clears the user from every trust set in one step
func (s *Svc) Ban(ctx context.Context, chatID, userID int64, until *time.Time) error {
	mu := s.keys.lock(chatID, userID)
	defer mu.Unlock()

	err := s.withRepo(ctx, func(r trepo.Repo) error {
		if err := r.AddBan(ctx, chatID, userID, until); err != nil {
			return err
		}
		return r.ClearTrust(ctx, chatID, userID)
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("chat_id", chatID).Int64("user_id", userID).
		Interface("until", until).Msg("user banned")
	return nil
}

// Unban lifts a ban placed by Ban
func (s *Svc) Unban(ctx context.Context, chatID, userID int64) error {
	mu := s.keys.lock(chatID, userID)
	defer mu.Unlock()

	return s.withRepo(ctx, func(r trepo.Repo) error {
		return r.RemoveBan(ctx, chatID, userID)
	})
}

// Cleanup removes the user from every collection in one transaction
func (s *Svc) Cleanup(ctx context.Context, chatID, userID int64) error {
	mu := s.keys.lock(chatID, userID)
	defer mu.Unlock()

	return s.withRepo(ctx, func(r trepo.Repo) error {
		return r.Cleanup(ctx, chatID, userID)
	})
}

// IsTrusted reports whether the user is approved for this chat
// bans always win over approvals
func (s *Svc) IsTrusted(ctx context.Context, chatID, userID int64) (bool, error) {
	banned, err := s.IsBanned(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	if banned {
		return false, nil
	}
	return s.repo.HasApproval(ctx, chatID, userID)
}

// IsBanned reports an active chat or global ban
func (s *Svc) IsBanned(ctx context.Context, chatID, userID int64) (bool, error) {
	return s.repo.HasActiveBan(ctx, chatID, userID, s.deps.Now().Now())
}

// SetAIDetect toggles manual AI review routing for the user
func (s *Svc) SetAIDetect(ctx context.Context, chatID, userID int64, enabled bool) error {
	mu := s.keys.lock(chatID, userID)
	defer mu.Unlock()

	return s.withRepo(ctx, func(r trepo.Repo) error {
		if _, err := s.ensure(ctx, r, chatID, userID); err != nil {
			return err
		}
		return r.SetAIDetect(ctx, chatID, userID, enabled)
	})
}
