package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"doorman/internal/modkit"
	dom "doorman/internal/services/suspicion/domain"
)

type fakeScorer struct {
	mu      sync.Mutex
	calls   int
	samples [][]string
	score   float64
}

func (f *fakeScorer) Score(messages []string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.samples = append(f.samples, messages)
	return f.score
}

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestSvc(score float64) (*Svc, *fakeScorer) {
	sc := &fakeScorer{score: score}
	deps := modkit.Deps{Log: zerolog.Nop()}
	return New(deps, Config{SampleSize: 3, Threshold: 0.7}, sc), sc
}

func TestClassifiesOnceAtThirdMessage(t *testing.T) {
	svc, sc := newTestSvc(0.9)
	ctx := context.Background()

	for i, msg := range []string{"привет", "привет"} {
		sig, _ := svc.Observe(ctx, 100, 7, msg)
		if sig != dom.SignalNone {
			t.Fatalf("message %d: want none, got %v", i+1, sig)
		}
		if sc.callCount() != 0 {
			t.Fatalf("classifier called before sample full")
		}
	}

	sig, score := svc.Observe(ctx, 100, 7, "привет")
	if sig != dom.SignalSuspiciousNow {
		t.Fatalf("want suspicious, got %v", sig)
	}
	if score != 0.9 {
		t.Fatalf("want score 0.9, got %v", score)
	}
	if sc.callCount() != 1 {
		t.Fatalf("want exactly one classification, got %d", sc.callCount())
	}
	if len(sc.samples[0]) != 3 {
		t.Fatalf("classifier must see the full sample, got %d messages", len(sc.samples[0]))
	}

	// further messages never re-classify
	for i := 0; i < 5; i++ {
		sig, _ := svc.Observe(ctx, 100, 7, "ещё сообщение")
		if sig != dom.SignalNone {
			t.Fatalf("post-classification observe must be none, got %v", sig)
		}
	}
	if sc.callCount() != 1 {
		t.Fatalf("classifier re-invoked: %d calls", sc.callCount())
	}
}

func TestOrganicSampleIsReadyForApproval(t *testing.T) {
	svc, _ := newTestSvc(0.2)
	ctx := context.Background()

	svc.Observe(ctx, 100, 7, "один")
	svc.Observe(ctx, 100, 7, "два")
	sig, score := svc.Observe(ctx, 100, 7, "три")
	if sig != dom.SignalReadyForApproval {
		t.Fatalf("want ready for approval, got %v", sig)
	}
	if score != 0.2 {
		t.Fatalf("want score 0.2, got %v", score)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	svc, sc := newTestSvc(0.9)
	ctx := context.Background()

	// same user in two chats samples separately
	for i := 0; i < 3; i++ {
		svc.Observe(ctx, 100, 7, "привет")
	}
	for i := 0; i < 3; i++ {
		svc.Observe(ctx, 200, 7, "привет")
	}
	if sc.callCount() != 2 {
		t.Fatalf("want one classification per key, got %d", sc.callCount())
	}
}

func TestScoredSetStaysBounded(t *testing.T) {
	sc := &fakeScorer{score: 0.2}
	svc := New(modkit.Deps{Log: zerolog.Nop()}, Config{SampleSize: 1, MaxTracked: 5}, sc)
	ctx := context.Background()

	for user := int64(1); user <= 20; user++ {
		svc.Observe(ctx, 100, user, "привет")
	}

	svc.mu.Lock()
	scored, order := len(svc.scored), len(svc.order)
	svc.mu.Unlock()
	if scored != 5 || order != 5 {
		t.Fatalf("scored = %d order = %d, want 5 each", scored, order)
	}

	// an evicted key samples again, a live one does not
	svc.Observe(ctx, 100, 1, "привет")
	svc.Observe(ctx, 100, 20, "привет")
	if sc.callCount() != 21 {
		t.Fatalf("calls = %d, want 21 (one re-sample for the evicted key)", sc.callCount())
	}
}

func TestForgetResetsSampling(t *testing.T) {
	svc, sc := newTestSvc(0.9)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		svc.Observe(ctx, 100, 7, "привет")
	}
	svc.Forget(100, 7)

	for i := 0; i < 3; i++ {
		svc.Observe(ctx, 100, 7, "привет")
	}
	if sc.callCount() != 2 {
		t.Fatalf("forget must allow a fresh sample, got %d calls", sc.callCount())
	}
}
