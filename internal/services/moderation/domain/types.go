// Package domain defines the decision pipeline types and ports
package domain

import (
	chdom "doorman/internal/services/challenge/domain"
)

// Action is what the transport layer should do about an event
type Action string

const (
	// ActionAllow lets the message stand
	ActionAllow Action = "allow"

	// ActionDelete removes the message but keeps the user
	ActionDelete Action = "delete"

	// ActionBan removes the user and the message
	ActionBan Action = "ban"

	// ActionReport forwards the message to the admin chat
	ActionReport Action = "report"

	// ActionRequireManualReview escalates without acting, the fail-closed default
	ActionRequireManualReview Action = "require_manual_review"

	// ActionChallenge is the synthetic pending marker for a fresh join,
	// not terminal, the challenge resolves out of band
	ActionChallenge Action = "challenge"
)

// rank orders actions for conflict resolution, higher wins
var rank = map[Action]int{
	ActionAllow:               0,
	ActionRequireManualReview: 1,
	ActionReport:              2,
	ActionDelete:              3,
	ActionBan:                 4,
}

// Outranks reports whether a beats b
func (a Action) Outranks(b Action) bool { return rank[a] > rank[b] }

// Decision is the pipeline's verdict for one event, produced fresh per call
type Decision struct {
	Action     Action
	Reason     string
	Confidence float64

	// Challenge carries puzzle content when Action is ActionChallenge
	Challenge *chdom.Challenge
}

// EventType distinguishes joins from messages
type EventType string

const (
	// EventJoin is a user entering the chat
	EventJoin EventType = "join"

	// EventMessage is a posted message
	EventMessage EventType = "message"
)

// Event is one incoming update the pipeline evaluates
type Event struct {
	Type   EventType
	ChatID int64
	UserID int64

	// Text is the message body, empty on joins
	Text string

	// FullName and Username shape the name checks
	FullName string
	Username string

	// HasButtons marks a message carrying an inline keyboard
	HasButtons bool

	// JoinRef is an opaque transport handle passed through to the challenge
	JoinRef string
}

// SignalVerdict is one adapter's result
// OK false means the call failed and says nothing about spam
type SignalVerdict struct {
	OK     bool
	Spam   bool
	Score  float64
	Detail string
}

// Profile is what the vision or LLM analyzer sees
type Profile struct {
	UserID   int64
	FullName string
	Username string
	Bio      string
	PhotoURL string
}
