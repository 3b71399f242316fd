// Package domain defines the trust lifecycle types and ports
package domain

import "time"

// State is the lifecycle stage of a (chat, user) pair
// Banned is tracked separately as an orthogonal fact
type State string

const (
	// StateUnknown means no record exists yet
	StateUnknown State = "unknown"

	// StateTracking counts clean messages toward approval
	StateTracking State = "tracking"

	// StateSuspicious is the slower approval track after a mimicry hit
	StateSuspicious State = "suspicious"

	// StateApproved skips all signal checks
	StateApproved State = "approved"
)

// ApprovalScope picks whether an approval covers one chat or the deployment
type ApprovalScope string

const (
	// ScopePerChat approves a user only in the chat they earned it
	ScopePerChat ApprovalScope = "per_chat"

	// ScopeGlobal approves a user everywhere, the default
	ScopeGlobal ApprovalScope = "global"
)

// GlobalChatID marks approval and ban rows that apply to every chat
const GlobalChatID int64 = 0

// Record is the per (chat, user) trust state
type Record struct {
	ChatID            int64
	UserID            int64
	State             State
	CleanMessageCount int
	SuspicionScore    float64
	AIDetectEnabled   bool
	UpdatedAt         time.Time
}

// Suspicious reports whether the record sits on the suspicion track
func (r Record) Suspicious() bool { return r.State == StateSuspicious }
