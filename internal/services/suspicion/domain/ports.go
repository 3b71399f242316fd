// Package domain defines the suspicion tracker types and ports
package domain

import "context"

// Signal is what one observation told us
type Signal string

const (
	// SignalNone means nothing conclusive yet
	SignalNone Signal = "none"

	// SignalSuspiciousNow means the sample scored over the mimicry threshold,
	// the caller should mark the user suspicious
	SignalSuspiciousNow Signal = "suspicious_now"

	// SignalReadyForApproval means the sample looked organic,
	// the user continues on the normal approval track
	SignalReadyForApproval Signal = "ready_for_approval"
)

// TrackerPort samples a user's first messages and scores them once
type TrackerPort interface {
	// Observe buffers text and classifies when the sample is full
	// the score is meaningful only when the signal is not SignalNone
	Observe(ctx context.Context, chatID, userID int64, text string) (Signal, float64)

	// Forget drops any buffered sample for the key, used by admin cleanup
	Forget(chatID, userID int64)
}

// Scorer rates how templated a full sample looks, 0..1
type Scorer interface {
	Score(messages []string) float64
}
