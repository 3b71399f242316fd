package domain

import (
	"context"
	"time"
)

// StorePort is the trust state surface the pipeline and managers consume
// operations on the same (chat, user) key are linearized by the implementation
type StorePort interface {
	// RecordCleanMessage atomically increments the clean counter and returns
	// the new count plus whether the increment crossed into Approved
	RecordCleanMessage(ctx context.Context, chatID, userID int64) (count int, approved bool, err error)

	// MarkSuspicious moves a Tracking user onto the suspicion track
	// the clean counter restarts so approval needs fresh clean messages
	MarkSuspicious(ctx context.Context, chatID, userID int64, score float64) error

	// Approve force-promotes the user, scope comes from configuration
	Approve(ctx context.Context, chatID, userID int64) error

	// Ban records a ban fact, nil until means permanent
	Ban(ctx context.Context, chatID, userID int64, until *time.Time) error

	// Unban lifts a ban placed by Ban, used by the scheduled restrict lift
	Unban(ctx context.Context, chatID, userID int64) error

	// Cleanup removes the user from every trust collection in one step
	Cleanup(ctx context.Context, chatID, userID int64) error

	// IsTrusted reports whether the user is approved for this chat
	IsTrusted(ctx context.Context, chatID, userID int64) (bool, error)

	// IsBanned reports an active ban for this chat or globally
	IsBanned(ctx context.Context, chatID, userID int64) (bool, error)

	// Get returns the record, creating a Tracking record when none exists
	Get(ctx context.Context, chatID, userID int64) (Record, error)

	// SetAIDetect toggles routing this user's messages to manual AI review
	SetAIDetect(ctx context.Context, chatID, userID int64, enabled bool) error
}
