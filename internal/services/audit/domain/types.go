// Package domain defines the audit log types and ports
package domain

import (
	"context"

	moddom "doorman/internal/services/moderation/domain"
)

// ChatStats are the per chat counters kept since process start
type ChatStats struct {
	ChatID          int64
	BlacklistBans   int64
	ChallengeStops  int64
	SpamDeletions   int64
	ManualReviews   int64
	MessagesAllowed int64
}

// RecorderPort is the audit surface, it also satisfies the pipeline's sink
type RecorderPort interface {
	moddom.AuditSink

	// Stats snapshots the counters for one chat
	Stats(chatID int64) ChatStats

	// AllStats snapshots every chat seen since start
	AllStats() []ChatStats

	// Flush forces buffered rows out, used on shutdown
	Flush(ctx context.Context) error
}
