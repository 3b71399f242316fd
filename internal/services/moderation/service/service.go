// Package service implements the moderation decision pipeline
package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"doorman/internal/core/badmsg"
	"doorman/internal/core/textfilter"
	"doorman/internal/platform/logger"
	chdom "doorman/internal/services/challenge/domain"
	"doorman/internal/services/moderation/domain"
	susdom "doorman/internal/services/suspicion/domain"
	trustdom "doorman/internal/services/trust/domain"
)

// Config tunes the pipeline's restored checks
type Config struct {
	// NameReportRunes and NameBanRunes bound the display name length checks
	NameReportRunes int
	NameBanRunes    int

	// LookalikeDelete softens the mixed-script word action to delete,
	// the default is a ban
	LookalikeDelete bool

	// LookalikeMinWords is how many distinct flagged words trigger the action
	LookalikeMinWords int

	// HamReviewFloor is the classifier score above which a ham verdict is
	// too weak to trust, scores in (floor, 0] escalate to manual review
	HamReviewFloor float64

	// ProfileThreshold is the analyzer probability that escalates to review
	ProfileThreshold float64
}

func (c *Config) defaults() {
	if c.NameReportRunes == 0 {
		c.NameReportRunes = 40
	}
	if c.NameBanRunes == 0 {
		c.NameBanRunes = 75
	}
	if c.LookalikeMinWords == 0 {
		c.LookalikeMinWords = 3
	}
	if c.HamReviewFloor == 0 {
		c.HamReviewFloor = -0.6
	}
	if c.ProfileThreshold == 0 {
		c.ProfileThreshold = 0.7
	}
}

// Deps collects everything Evaluate consults
type Deps struct {
	Log        logger.Logger
	Trust      trustdom.StorePort
	Challenges chdom.ManagerPort
	Suspicion  susdom.TrackerPort

	Blacklist  domain.BlacklistLookup
	Classifier domain.TextClassifier
	Analyzer   domain.ProfileAnalyzer

	StopWords *textfilter.StopWords
	BadMsgs   *badmsg.Set
	Audit     domain.AuditSink
}

// Svc is the pipeline, stateless between calls
type Svc struct {
	log  logger.Logger
	deps Deps
	cfg  Config
}

// New builds the pipeline, Blacklist Classifier Analyzer and Audit may be nil
func New(deps Deps, cfg Config) *Svc {
	cfg.defaults()
	return &Svc{log: deps.Log.With().Str("service", "moderation").Logger(), deps: deps, cfg: cfg}
}

// Evaluate runs one event through the pipeline and never panics outward
func (s *Svc) Evaluate(ctx context.Context, ev domain.Event) (d domain.Decision) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).
				Int64("chat_id", ev.ChatID).Int64("user_id", ev.UserID).
				Msg("pipeline panic")
			d = domain.Decision{
				Action: domain.ActionRequireManualReview,
				Reason: fmt.Sprintf("pipeline panic: %v", r),
			}
		}
		s.audit(ctx, ev, d)
	}()

	d = s.evaluate(ctx, ev)
	return d
}

func (s *Svc) evaluate(ctx context.Context, ev domain.Event) domain.Decision {
	// the blacklist runs before everything, approval does not shield it
	attempted, failed := 0, 0
	if s.deps.Blacklist != nil {
		attempted++
		hit, err := s.deps.Blacklist.Lookup(ctx, ev.UserID)
		switch {
		case err != nil:
			failed++
			s.log.Warn().Err(err).Int64("user_id", ev.UserID).Msg("blacklist lookup failed")
		case hit:
			return domain.Decision{Action: domain.ActionBan, Reason: "blacklisted", Confidence: 1}
		}
	}

	if banned, err := s.deps.Trust.IsBanned(ctx, ev.ChatID, ev.UserID); err != nil {
		s.log.Error().Err(err).Msg("ban check failed")
	} else if banned {
		return domain.Decision{Action: domain.ActionBan, Reason: "already banned", Confidence: 1}
	}

	trusted, err := s.deps.Trust.IsTrusted(ctx, ev.ChatID, ev.UserID)
	if err != nil {
		s.log.Error().Err(err).Msg("trust check failed")
	}
	if trusted {
		return domain.Decision{Action: domain.ActionAllow, Reason: "approved"}
	}

	if ev.Type == domain.EventJoin {
		return s.handleJoin(ctx, ev)
	}

	if verdict, ok := s.cheapSignals(ev); ok {
		return verdict
	}

	best := domain.Decision{Action: domain.ActionAllow}
	fired := false

	if s.deps.Classifier != nil && ev.Text != "" {
		attempted++
		v, err := s.deps.Classifier.Classify(ctx, ev.Text)
		switch {
		case err != nil || !v.OK:
			failed++
			s.log.Warn().Err(err).Msg("classifier unavailable")
		case v.Spam:
			fired = true
			best = pick(best, domain.Decision{
				Action:     domain.ActionDelete,
				Reason:     "classifier: " + v.Detail,
				Confidence: v.Score,
			})
		case v.Score > s.cfg.HamReviewFloor:
			fired = true
			best = pick(best, domain.Decision{
				Action:     domain.ActionRequireManualReview,
				Reason:     "classifier undecided",
				Confidence: -v.Score,
			})
		}
	}

	if s.deps.Analyzer != nil && !fired {
		if rec, err := s.deps.Trust.Get(ctx, ev.ChatID, ev.UserID); err == nil && rec.AIDetectEnabled {
			attempted++
			p := domain.Profile{UserID: ev.UserID, FullName: ev.FullName, Username: ev.Username}
			prob, why, err := s.deps.Analyzer.Analyze(ctx, p, ev.Text)
			switch {
			case err != nil:
				failed++
				s.log.Warn().Err(err).Msg("profile analyzer unavailable")
			case prob >= s.cfg.ProfileThreshold:
				fired = true
				best = pick(best, domain.Decision{
					Action:     domain.ActionRequireManualReview,
					Reason:     "profile: " + why,
					Confidence: prob,
				})
			}
		}
	}

	if fired {
		return best
	}

	// no signal fired, but if every adapter we tried was down we cannot
	// vouch for the message either
	if attempted > 0 && failed == attempted {
		return domain.Decision{
			Action: domain.ActionRequireManualReview,
			Reason: "all signal adapters unavailable",
		}
	}

	return s.countClean(ctx, ev)
}

// handleJoin issues a challenge for users without standing
// a rejoining user with observed history skips the gate
func (s *Svc) handleJoin(ctx context.Context, ev domain.Event) domain.Decision {
	if s.deps.Challenges == nil {
		return domain.Decision{Action: domain.ActionAllow, Reason: "challenges disabled"}
	}
	if rec, err := s.deps.Trust.Get(ctx, ev.ChatID, ev.UserID); err == nil && rec.CleanMessageCount > 0 {
		return domain.Decision{Action: domain.ActionAllow, Reason: "known member rejoined"}
	}
	ch, status := s.deps.Challenges.Issue(ctx, ev.ChatID, ev.UserID, ev.JoinRef)
	reason := "challenge issued"
	if status == chdom.AlreadyPending {
		reason = "challenge already pending"
	}
	return domain.Decision{Action: domain.ActionChallenge, Reason: reason, Challenge: &ch}
}

// cheapSignals runs the deterministic checks that need no network
func (s *Svc) cheapSignals(ev domain.Event) (domain.Decision, bool) {
	if s.deps.BadMsgs != nil && ev.Text != "" && s.deps.BadMsgs.Known(ev.Text) {
		return domain.Decision{Action: domain.ActionBan, Reason: "known bad message", Confidence: 1}, true
	}

	if ev.HasButtons {
		return domain.Decision{Action: domain.ActionBan, Reason: "message carries inline keyboard", Confidence: 1}, true
	}

	if n := utf8.RuneCountInString(ev.FullName); n > s.cfg.NameBanRunes {
		return domain.Decision{Action: domain.ActionBan, Reason: "display name too long", Confidence: 1}, true
	} else if n > s.cfg.NameReportRunes {
		return domain.Decision{Action: domain.ActionReport, Reason: "display name suspiciously long", Confidence: 0.5}, true
	}

	if textfilter.EmojiFlood(ev.Text) {
		return domain.Decision{Action: domain.ActionDelete, Reason: "emoji flood", Confidence: 0.9}, true
	}

	if words := textfilter.LookalikeWords(ev.Text); len(words) >= s.cfg.LookalikeMinWords {
		action := domain.ActionBan
		if s.cfg.LookalikeDelete {
			action = domain.ActionDelete
		}
		return domain.Decision{
			Action:     action,
			Reason:     fmt.Sprintf("lookalike words: %v", words),
			Confidence: 1,
		}, true
	}

	if ev.Text != "" && s.deps.StopWords != nil {
		if word, hit := s.deps.StopWords.Match(textfilter.Normalize(ev.Text)); hit {
			return domain.Decision{Action: domain.ActionDelete, Reason: "stop word: " + word, Confidence: 1}, true
		}
	}

	return domain.Decision{}, false
}

// countClean runs the mimicry check, then credits the message
// scoring first keeps the suspicion track reachable on the message that
// would otherwise promote the user
func (s *Svc) countClean(ctx context.Context, ev domain.Event) domain.Decision {
	if s.deps.Suspicion != nil && ev.Text != "" {
		sig, score := s.deps.Suspicion.Observe(ctx, ev.ChatID, ev.UserID, ev.Text)
		if sig == susdom.SignalSuspiciousNow {
			if err := s.deps.Trust.MarkSuspicious(ctx, ev.ChatID, ev.UserID, score); err != nil {
				s.log.Error().Err(err).Msg("suspicion mark failed")
			}
			return domain.Decision{
				Action:     domain.ActionReport,
				Reason:     "message pattern looks templated",
				Confidence: score,
			}
		}
	}

	count, promoted, err := s.deps.Trust.RecordCleanMessage(ctx, ev.ChatID, ev.UserID)
	if err != nil {
		s.log.Error().Err(err).Msg("clean message credit failed")
		return domain.Decision{Action: domain.ActionRequireManualReview, Reason: "trust store unavailable"}
	}

	reason := fmt.Sprintf("clean message %d", count)
	if promoted {
		reason = "approved"
	}
	return domain.Decision{Action: domain.ActionAllow, Reason: reason}
}

// pick keeps the stronger of two decisions, rank first then confidence
func pick(a, b domain.Decision) domain.Decision {
	if b.Action.Outranks(a.Action) {
		return b
	}
	if a.Action == b.Action && b.Confidence > a.Confidence {
		return b
	}
	return a
}

func (s *Svc) audit(ctx context.Context, ev domain.Event, d domain.Decision) {
	if s.deps.Audit == nil {
		return
	}
	s.deps.Audit.RecordDecision(ctx, ev, d)
}
