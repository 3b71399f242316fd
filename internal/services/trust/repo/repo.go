// Package repo provides the trust persistence surface
package repo

import (
	"context"
	"errors"
	"time"

	"doorman/internal/modkit/repokit"
	perr "doorman/internal/platform/errors"
	"doorman/internal/platform/store"
	"doorman/internal/services/trust/domain"

	"github.com/jackc/pgx/v5"
)

// Repo is the storage surface the trust service drives
// implementations do plain reads and writes, linearization lives upstream
type Repo interface {
	Get(ctx context.Context, chatID, userID int64) (domain.Record, bool, error)
	Upsert(ctx context.Context, rec domain.Record) error
	IncrementClean(ctx context.Context, chatID, userID int64) (int, error)
	SetState(ctx context.Context, chatID, userID int64, state domain.State, score float64) error
	SetAIDetect(ctx context.Context, chatID, userID int64, enabled bool) error

	AddApproval(ctx context.Context, chatID, userID int64) error
	HasApproval(ctx context.Context, chatID, userID int64) (bool, error)

	AddBan(ctx context.Context, chatID, userID int64, until *time.Time) error
	RemoveBan(ctx context.Context, chatID, userID int64) error
	HasActiveBan(ctx context.Context, chatID, userID int64, now time.Time) (bool, error)

	// ClearTrust drops the record and approvals but leaves ban rows alone,
	// used when a ban must clear the user from every trust set
	ClearTrust(ctx context.Context, chatID, userID int64) error

	// Cleanup removes every row for the pair plus the user's global rows
	// callers wanting atomicity bind this repo to a transaction
	Cleanup(ctx context.Context, chatID, userID int64) error
}

type (
	// PG is a Postgres implementation of the trust repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Get(ctx context.Context, chatID, userID int64) (domain.Record, bool, error) {
	const sql = `
		SELECT chat_id, user_id, state, clean_count, suspicion_score, ai_detect, updated_at
		FROM trust_records
		WHERE chat_id = $1 AND user_id = $2`

	var rec domain.Record
	var state string
	err := r.q.QueryRow(ctx, sql, chatID, userID).Scan(
		&rec.ChatID, &rec.UserID, &state, &rec.CleanMessageCount,
		&rec.SuspicionScore, &rec.AIDetectEnabled, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, perr.ErrNotFound) {
			return domain.Record{}, false, nil
		}
		return domain.Record{}, false, perr.FromPostgres(err, "trust get")
	}
	rec.State = domain.State(state)
	return rec, true, nil
}

func (r *queries) Upsert(ctx context.Context, rec domain.Record) error {
	const sql = `
		INSERT INTO trust_records (chat_id, user_id, state, clean_count, suspicion_score, ai_detect, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (chat_id, user_id) DO UPDATE SET
			state = EXCLUDED.state,
			clean_count = EXCLUDED.clean_count,
			suspicion_score = EXCLUDED.suspicion_score,
			ai_detect = EXCLUDED.ai_detect,
			updated_at = NOW()`

	_, err := r.q.Exec(ctx, sql,
		rec.ChatID, rec.UserID, string(rec.State),
		rec.CleanMessageCount, rec.SuspicionScore, rec.AIDetectEnabled,
	)
	if err != nil {
		return perr.FromPostgres(err, "trust upsert")
	}
	return nil
}

func (r *queries) IncrementClean(ctx context.Context, chatID, userID int64) (int, error) {
	const sql = `
		UPDATE trust_records
		SET clean_count = clean_count + 1, updated_at = NOW()
		WHERE chat_id = $1 AND user_id = $2
		RETURNING clean_count`

	var count int
	if err := r.q.QueryRow(ctx, sql, chatID, userID).Scan(&count); err != nil {
		return 0, perr.FromPostgres(err, "trust increment clean")
	}
	return count, nil
}

func (r *queries) SetState(ctx context.Context, chatID, userID int64, state domain.State, score float64) error {
	const sql = `
		UPDATE trust_records
		SET state = $3, suspicion_score = $4, updated_at = NOW()
		WHERE chat_id = $1 AND user_id = $2`

	if err := store.ExecOne(ctx, r.q, sql, chatID, userID, string(state), score); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "trust set state")
	}
	return nil
}

func (r *queries) SetAIDetect(ctx context.Context, chatID, userID int64, enabled bool) error {
	const sql = `
		UPDATE trust_records
		SET ai_detect = $3, updated_at = NOW()
		WHERE chat_id = $1 AND user_id = $2`

	_, err := r.q.Exec(ctx, sql, chatID, userID, enabled)
	if err != nil {
		return perr.FromPostgres(err, "trust set ai detect")
	}
	return nil
}

func (r *queries) AddApproval(ctx context.Context, chatID, userID int64) error {
	const sql = `
		INSERT INTO approved_users (chat_id, user_id, approved_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (chat_id, user_id) DO NOTHING`

	if _, err := r.q.Exec(ctx, sql, chatID, userID); err != nil {
		return perr.FromPostgres(err, "trust add approval")
	}
	return nil
}

func (r *queries) HasApproval(ctx context.Context, chatID, userID int64) (bool, error) {
	const sql = `
		SELECT EXISTS (
			SELECT 1 FROM approved_users
			WHERE user_id = $2 AND chat_id IN ($1, $3)
		)`

	var ok bool
	if err := r.q.QueryRow(ctx, sql, chatID, userID, domain.GlobalChatID).Scan(&ok); err != nil {
		return false, perr.FromPostgres(err, "trust has approval")
	}
	return ok, nil
}

func (r *queries) AddBan(ctx context.Context, chatID, userID int64, until *time.Time) error {
	const sql = `
		INSERT INTO banned_users (chat_id, user_id, banned_until, banned_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (chat_id, user_id) DO UPDATE SET
			banned_until = EXCLUDED.banned_until,
			banned_at = NOW()`

	if _, err := r.q.Exec(ctx, sql, chatID, userID, until); err != nil {
		return perr.FromPostgres(err, "trust add ban")
	}
	return nil
}

func (r *queries) RemoveBan(ctx context.Context, chatID, userID int64) error {
	const sql = `DELETE FROM banned_users WHERE chat_id = $1 AND user_id = $2`

	if _, err := r.q.Exec(ctx, sql, chatID, userID); err != nil {
		return perr.FromPostgres(err, "trust remove ban")
	}
	return nil
}

func (r *queries) HasActiveBan(ctx context.Context, chatID, userID int64, now time.Time) (bool, error) {
	const sql = `
		SELECT EXISTS (
			SELECT 1 FROM banned_users
			WHERE user_id = $2 AND chat_id IN ($1, $3)
			AND (banned_until IS NULL OR banned_until > $4)
		)`

	var ok bool
	if err := r.q.QueryRow(ctx, sql, chatID, userID, domain.GlobalChatID, now).Scan(&ok); err != nil {
		return false, perr.FromPostgres(err, "trust has active ban")
	}
	return ok, nil
}

func (r *queries) ClearTrust(ctx context.Context, chatID, userID int64) error {
	stmts := []string{
		`DELETE FROM trust_records WHERE user_id = $2 AND chat_id = $1`,
		`DELETE FROM approved_users WHERE user_id = $2 AND chat_id IN ($1, 0)`,
	}
	for _, sql := range stmts {
		if _, err := r.q.Exec(ctx, sql, chatID, userID); err != nil {
			return perr.FromPostgres(err, "trust clear")
		}
	}
	return nil
}

func (r *queries) Cleanup(ctx context.Context, chatID, userID int64) error {
	stmts := []string{
		`DELETE FROM trust_records WHERE user_id = $2 AND chat_id = $1`,
		`DELETE FROM approved_users WHERE user_id = $2 AND chat_id IN ($1, 0)`,
		`DELETE FROM banned_users WHERE user_id = $2 AND chat_id IN ($1, 0)`,
	}
	for _, sql := range stmts {
		if _, err := r.q.Exec(ctx, sql, chatID, userID); err != nil {
			return perr.FromPostgres(err, "trust cleanup")
		}
	}
	return nil
}
