package domain

import (
	"context"
	"time"
)

// ManagerPort owns one live challenge per (chat, user) key
type ManagerPort interface {
	// Issue creates a challenge unless one is already live for the key
	// the returned challenge is the live one in both cases
	Issue(ctx context.Context, chatID, userID int64, joinRef string) (Challenge, IssueStatus)

	// Resolve finalizes the live challenge exactly once
	// answer is the picked option index, a second call returns NotFound
	Resolve(ctx context.Context, chatID, userID int64, answer int) (Challenge, ResolveStatus)

	// ExpireOverdue finalizes every live challenge past its deadline and
	// returns them, normally the scheduler does this per challenge
	ExpireOverdue(ctx context.Context) []Challenge

	// Pending reports whether a live challenge exists for the key
	Pending(chatID, userID int64) bool
}

// Enforcer applies the consequences of a failed or expired challenge
// the bot wires this to the trust store plus the transport restrict call
type Enforcer interface {
	// TempBan restricts the user until the given time
	TempBan(ctx context.Context, chatID, userID int64, until time.Time) error

	// LiftBan removes a restriction placed by TempBan
	LiftBan(ctx context.Context, chatID, userID int64) error
}
