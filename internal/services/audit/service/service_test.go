package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"doorman/internal/platform/clock"
	"doorman/internal/platform/store"
	moddom "doorman/internal/services/moderation/domain"
)

type fakeCH struct {
	mu      sync.Mutex
	inserts [][][]any
	tables  []string
	columns [][]string
	err     error
}

func (f *fakeCH) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tables = append(f.tables, table)
	f.columns = append(f.columns, columns)
	f.inserts = append(f.inserts, rows)
	return nil
}

func (f *fakeCH) Query(ctx context.Context, query string, args ...any) (store.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCH) Close() error { return nil }

func newTestSvc(ch store.Clickhouse) (*Svc, *clock.Manual) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return New(zerolog.Nop(), ch, clk, Config{BatchSize: 100, FlushEvery: time.Hour}), clk
}

func ev(chatID int64) moddom.Event {
	return moddom.Event{Type: moddom.EventMessage, ChatID: chatID, UserID: 7}
}

func TestFlushWritesBufferedRows(t *testing.T) {
	ch := &fakeCH{}
	svc, clk := newTestSvc(ch)

	svc.RecordDecision(context.Background(), ev(1), moddom.Decision{
		Action: moddom.ActionDelete, Reason: "stop word: казино", Confidence: 1,
	})
	svc.RecordDecision(context.Background(), ev(1), moddom.Decision{
		Action: moddom.ActionAllow, Reason: "clean message 1",
	})

	if err := svc.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(ch.inserts) != 1 || len(ch.inserts[0]) != 2 {
		t.Fatalf("inserts = %v, want one batch of two rows", ch.inserts)
	}
	if ch.tables[0] != "moderation_decisions" {
		t.Fatalf("table = %q", ch.tables[0])
	}
	row := ch.inserts[0][0]
	if len(row) != len(decisionColumns) {
		t.Fatalf("row arity %d, columns %d", len(row), len(decisionColumns))
	}
	if row[1] != clk.Now() {
		t.Fatalf("ts = %v, want %v", row[1], clk.Now())
	}
	if row[8] != "stop word" {
		t.Fatalf("source = %v, want stop word", row[8])
	}
}

func TestFlushEmptyIsNoop(t *testing.T) {
	ch := &fakeCH{}
	svc, _ := newTestSvc(ch)
	if err := svc.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(ch.inserts) != 0 {
		t.Fatalf("unexpected insert on empty buffer")
	}
}

func TestNilBackendKeepsCounters(t *testing.T) {
	svc, _ := newTestSvc(nil)

	svc.RecordDecision(context.Background(), ev(5), moddom.Decision{Action: moddom.ActionAllow})
	if err := svc.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := svc.Stats(5).MessagesAllowed; got != 1 {
		t.Fatalf("MessagesAllowed = %d, want 1", got)
	}
}

func TestCountersPerChat(t *testing.T) {
	svc, _ := newTestSvc(&fakeCH{})
	ctx := context.Background()

	svc.RecordDecision(ctx, ev(1), moddom.Decision{Action: moddom.ActionBan, Reason: "blacklisted"})
	svc.RecordDecision(ctx, ev(1), moddom.Decision{Action: moddom.ActionChallenge, Reason: "challenge issued"})
	svc.RecordDecision(ctx, ev(1), moddom.Decision{Action: moddom.ActionDelete, Reason: "emoji flood"})
	svc.RecordDecision(ctx, ev(1), moddom.Decision{Action: moddom.ActionRequireManualReview, Reason: "classifier undecided"})
	svc.RecordDecision(ctx, ev(2), moddom.Decision{Action: moddom.ActionAllow, Reason: "approved"})

	one := svc.Stats(1)
	if one.BlacklistBans != 1 || one.ChallengeStops != 1 || one.SpamDeletions != 1 || one.ManualReviews != 1 {
		t.Fatalf("chat 1 stats = %+v", one)
	}
	if one.MessagesAllowed != 0 {
		t.Fatalf("chat 1 allowed = %d, want 0", one.MessagesAllowed)
	}
	if got := svc.Stats(2).MessagesAllowed; got != 1 {
		t.Fatalf("chat 2 allowed = %d, want 1", got)
	}
	if got := len(svc.AllStats()); got != 2 {
		t.Fatalf("AllStats len = %d, want 2", got)
	}
}

func TestFlushErrorIsReturnedAndRowsDropped(t *testing.T) {
	ch := &fakeCH{err: errors.New("connection reset")}
	svc, _ := newTestSvc(ch)

	svc.RecordDecision(context.Background(), ev(1), moddom.Decision{Action: moddom.ActionAllow})
	if err := svc.Flush(context.Background()); err == nil {
		t.Fatal("Flush should surface the backend error")
	}

	ch.err = nil
	if err := svc.Flush(context.Background()); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if len(ch.inserts) != 0 {
		t.Fatalf("failed rows should not be retried, got %v", ch.inserts)
	}
}
