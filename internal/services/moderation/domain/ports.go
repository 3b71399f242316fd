package domain

import "context"

// PipelinePort is the moderation service surface the transport calls
type PipelinePort interface {
	// Evaluate runs one event through the decision pipeline
	Evaluate(ctx context.Context, ev Event) Decision
}

// BlacklistLookup answers membership in an external banlist
type BlacklistLookup interface {
	// Lookup reports whether the user is blacklisted
	// An error means the source was unreachable, not that the user is clean
	Lookup(ctx context.Context, userID int64) (bool, error)
}

// TextClassifier scores message text for spam
// Negative scores lean ham, positive lean spam
type TextClassifier interface {
	Classify(ctx context.Context, text string) (SignalVerdict, error)
}

// ProfileAnalyzer estimates the probability a profile belongs to a spammer
type ProfileAnalyzer interface {
	Analyze(ctx context.Context, p Profile, firstMessage string) (float64, string, error)
}

// AuditSink receives every decision the pipeline emits
// Implementations must not block the pipeline on slow storage
type AuditSink interface {
	RecordDecision(ctx context.Context, ev Event, d Decision)
}
