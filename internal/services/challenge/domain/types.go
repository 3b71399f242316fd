// Package domain defines the challenge types and ports
package domain

import (
	"time"

	"doorman/internal/core/captcha"
)

// Outcome is the terminal status of a challenge
type Outcome string

const (
	// OutcomePending means the challenge still waits for an answer
	OutcomePending Outcome = "pending"

	// OutcomeCorrect means the right button was pressed in time
	OutcomeCorrect Outcome = "correct"

	// OutcomeIncorrect means a wrong button was pressed
	OutcomeIncorrect Outcome = "incorrect"

	// OutcomeExpired means the deadline passed with no answer
	OutcomeExpired Outcome = "expired"
)

// IssueStatus reports what Issue did
type IssueStatus string

const (
	// Issued means a fresh challenge was created
	Issued IssueStatus = "issued"

	// AlreadyPending means a live challenge already exists for the key,
	// the existing challenge is untouched
	AlreadyPending IssueStatus = "already_pending"
)

// ResolveStatus reports what Resolve did
type ResolveStatus string

const (
	// Resolved means this call finalized the challenge
	Resolved ResolveStatus = "resolved"

	// NotFound means no live challenge existed, duplicate callbacks land here
	NotFound ResolveStatus = "not_found"
)

// Challenge is one live or just-finalized puzzle
type Challenge struct {
	ChatID   int64
	UserID   int64
	Puzzle   captcha.Puzzle
	IssuedAt time.Time
	Deadline time.Time

	// JoinRef is an opaque transport handle, usually the intro message id,
	// kept so the caller can delete the prompt later
	JoinRef string

	Outcome Outcome
}
