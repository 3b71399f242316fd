package telegram

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"doorman/internal/core/badmsg"
	"doorman/internal/core/captcha"
	chdom "doorman/internal/services/challenge/domain"
	moddom "doorman/internal/services/moderation/domain"
	trustdom "doorman/internal/services/trust/domain"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
	updates  chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	if f.updates != nil {
		return f.updates
	}
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeAPI) deletes() []tgbotapi.DeleteMessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.DeleteMessageConfig
	for _, r := range f.requests {
		if d, ok := r.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeAPI) bans() []tgbotapi.BanChatMemberConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.BanChatMemberConfig
	for _, r := range f.requests {
		if b, ok := r.(tgbotapi.BanChatMemberConfig); ok {
			out = append(out, b)
		}
	}
	return out
}

type fixedPipeline struct {
	decision moddom.Decision
	events   []moddom.Event
}

func (f *fixedPipeline) Evaluate(ctx context.Context, ev moddom.Event) moddom.Decision {
	f.events = append(f.events, ev)
	return f.decision
}

type recordingChallenges struct {
	mu       sync.Mutex
	resolves []int
	outcome  chdom.Outcome
	status   chdom.ResolveStatus
}

func (r *recordingChallenges) Issue(ctx context.Context, chatID, userID int64, joinRef string) (chdom.Challenge, chdom.IssueStatus) {
	return chdom.Challenge{}, chdom.Issued
}

func (r *recordingChallenges) Resolve(ctx context.Context, chatID, userID int64, answer int) (chdom.Challenge, chdom.ResolveStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolves = append(r.resolves, answer)
	return chdom.Challenge{ChatID: chatID, UserID: userID, Outcome: r.outcome}, r.status
}

func (r *recordingChallenges) ExpireOverdue(ctx context.Context) []chdom.Challenge { return nil }
func (r *recordingChallenges) Pending(chatID, userID int64) bool                   { return false }

type nopTrust struct {
	bans     int
	approves int
}

func (n *nopTrust) RecordCleanMessage(ctx context.Context, chatID, userID int64) (int, bool, error) {
	return 0, false, nil
}
func (n *nopTrust) MarkSuspicious(ctx context.Context, chatID, userID int64, score float64) error {
	return nil
}
func (n *nopTrust) Approve(ctx context.Context, chatID, userID int64) error {
	n.approves++
	return nil
}
func (n *nopTrust) Ban(ctx context.Context, chatID, userID int64, until *time.Time) error {
	n.bans++
	return nil
}
func (n *nopTrust) Unban(ctx context.Context, chatID, userID int64) error   { return nil }
func (n *nopTrust) Cleanup(ctx context.Context, chatID, userID int64) error { return nil }
func (n *nopTrust) IsTrusted(ctx context.Context, chatID, userID int64) (bool, error) {
	return false, nil
}
func (n *nopTrust) IsBanned(ctx context.Context, chatID, userID int64) (bool, error) {
	return false, nil
}
func (n *nopTrust) Get(ctx context.Context, chatID, userID int64) (trustdom.Record, error) {
	return trustdom.Record{}, nil
}
func (n *nopTrust) SetAIDetect(ctx context.Context, chatID, userID int64, enabled bool) error {
	return nil
}

func newTestBot(api *fakeAPI, pipe moddom.PipelinePort, chs chdom.ManagerPort) *Bot {
	return newWith(api, Deps{
		Log:        zerolog.Nop(),
		Pipeline:   pipe,
		Challenges: chs,
		Trust:      &nopTrust{},
		BadMsgs:    badmsg.New(zerolog.Nop(), 100),
	}, Options{AdminChatID: 500})
}

func groupMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 11,
		Chat:      &tgbotapi.Chat{ID: 100},
		From:      &tgbotapi.User{ID: 42, FirstName: "Ivan"},
		Text:      text,
	}
}

type gatePipeline struct {
	started chan int64
	release chan struct{}
	block   int64
}

func (p *gatePipeline) Evaluate(ctx context.Context, ev moddom.Event) moddom.Decision {
	p.started <- ev.ChatID
	if ev.ChatID == p.block {
		<-p.release
	}
	return moddom.Decision{Action: moddom.ActionAllow}
}

func chatUpdate(chatID, userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: userID, FirstName: "Ivan"},
		Text:      text,
	}}
}

// a blocked evaluation on one pair must not stall updates for other pairs
func TestRunFansOutAcrossWorkers(t *testing.T) {
	const workers = 4
	chatA := int64(100)
	chatB := chatA + 1
	for laneIndex(pairKey{chat: chatB, user: 42}, workers) == laneIndex(pairKey{chat: chatA, user: 42}, workers) {
		chatB++
	}

	pipe := &gatePipeline{
		started: make(chan int64, 4),
		release: make(chan struct{}),
		block:   chatA,
	}
	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	bot := newWith(api, Deps{
		Log:        zerolog.Nop(),
		Pipeline:   pipe,
		Challenges: &recordingChallenges{},
		Trust:      &nopTrust{},
	}, Options{AdminChatID: 500, Workers: workers})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	api.updates <- chatUpdate(chatA, 42, "первое")
	if got := <-pipe.started; got != chatA {
		t.Fatalf("first evaluation on chat %d, want %d", got, chatA)
	}

	api.updates <- chatUpdate(chatB, 42, "второе")
	select {
	case got := <-pipe.started:
		if got != chatB {
			t.Fatalf("second evaluation on chat %d, want %d", got, chatB)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("update for another chat stalled behind a blocked evaluation")
	}

	close(pipe.release)
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("run returned %v, want context.Canceled", err)
	}
}

// per-pair ordering survives the fan-out, one pair always hashes to one lane
func TestLaneIndexIsStable(t *testing.T) {
	for chat := int64(0); chat < 50; chat++ {
		k := pairKey{chat: chat, user: chat * 7}
		a := laneIndex(k, 8)
		if a < 0 || a >= 8 {
			t.Fatalf("lane %d out of range for key %+v", a, k)
		}
		if b := laneIndex(k, 8); b != a {
			t.Fatalf("lane changed between calls: %d then %d", a, b)
		}
	}
}

func joinMessage(chatID, userID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID:      7,
		Chat:           &tgbotapi.Chat{ID: chatID},
		NewChatMembers: []tgbotapi.User{{ID: userID, FirstName: "Ivan"}},
	}
}

// a repeat join while a prompt is live must not post a second puzzle,
// the stored message id is what cleanup deletes later
func TestRepeatJoinKeepsFirstPuzzle(t *testing.T) {
	api := &fakeAPI{}
	ch := &chdom.Challenge{
		ChatID: 100, UserID: 42,
		Puzzle: captcha.Generate(rand.New(rand.NewSource(1))),
	}
	pipe := &fixedPipeline{decision: moddom.Decision{Action: moddom.ActionChallenge, Challenge: ch}}
	bot := newTestBot(api, pipe, &recordingChallenges{})

	bot.onMessage(context.Background(), joinMessage(100, 42))
	bot.onMessage(context.Background(), joinMessage(100, 42))

	if len(api.sent) != 1 {
		t.Fatalf("sent = %d puzzle messages, want 1", len(api.sent))
	}
	bot.mu.Lock()
	id := bot.puzzles[pairKey{100, 42}]
	bot.mu.Unlock()
	if id != 1 {
		t.Fatalf("stored puzzle message id = %d, want the first send", id)
	}
}

func TestDeleteDecisionRemovesMessageAndReports(t *testing.T) {
	api := &fakeAPI{}
	pipe := &fixedPipeline{decision: moddom.Decision{Action: moddom.ActionDelete, Reason: "stop word: казино"}}
	bot := newTestBot(api, pipe, &recordingChallenges{})

	bot.onMessage(context.Background(), groupMessage("казино бонус"))

	dels := api.deletes()
	if len(dels) != 1 || dels[0].MessageID != 11 {
		t.Fatalf("deletes = %+v, want message 11", dels)
	}
	if bot.bad == nil || !bot.bad.Known("казино бонус") {
		t.Fatal("deleted text should join the known bad set")
	}
	if len(api.sent) != 1 {
		t.Fatalf("sent = %d messages, want 1 admin report", len(api.sent))
	}
}

func TestBanDecisionBansAndDeletes(t *testing.T) {
	api := &fakeAPI{}
	pipe := &fixedPipeline{decision: moddom.Decision{Action: moddom.ActionBan, Reason: "blacklisted"}}
	bot := newTestBot(api, pipe, &recordingChallenges{})

	bot.onMessage(context.Background(), groupMessage("spam"))

	if len(api.deletes()) != 1 {
		t.Fatal("message should be deleted")
	}
	bans := api.bans()
	if len(bans) != 1 || bans[0].UserID != 42 {
		t.Fatalf("bans = %+v, want user 42", bans)
	}
}

func TestAllowDecisionTouchesNothing(t *testing.T) {
	api := &fakeAPI{}
	pipe := &fixedPipeline{decision: moddom.Decision{Action: moddom.ActionAllow}}
	bot := newTestBot(api, pipe, &recordingChallenges{})

	bot.onMessage(context.Background(), groupMessage("привет"))

	if len(api.requests) != 0 || len(api.sent) != 0 {
		t.Fatalf("requests = %d sent = %d, want none", len(api.requests), len(api.sent))
	}
}

func TestPuzzlePressByOtherUserIgnored(t *testing.T) {
	api := &fakeAPI{}
	chs := &recordingChallenges{status: chdom.Resolved, outcome: chdom.OutcomeCorrect}
	bot := newTestBot(api, &fixedPipeline{}, chs)

	bot.onCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "cap_42_3",
		From:    &tgbotapi.User{ID: 99},
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: 100}},
	})

	if len(chs.resolves) != 0 {
		t.Fatalf("resolve called %d times for a stranger's press", len(chs.resolves))
	}
}

func TestPuzzlePressResolves(t *testing.T) {
	api := &fakeAPI{}
	chs := &recordingChallenges{status: chdom.Resolved, outcome: chdom.OutcomeCorrect}
	bot := newTestBot(api, &fixedPipeline{}, chs)

	bot.onCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "cap_42_3",
		From:    &tgbotapi.User{ID: 42},
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: 100}},
	})

	if len(chs.resolves) != 1 || chs.resolves[0] != 3 {
		t.Fatalf("resolves = %v, want [3]", chs.resolves)
	}
}

func TestParsePuzzleData(t *testing.T) {
	cases := []struct {
		data string
		uid  int64
		ans  int
		ok   bool
	}{
		{"cap_42_3", 42, 3, true},
		{"cap_42", 0, 0, false},
		{"ban_1_2", 0, 0, false},
		{"cap_x_3", 0, 0, false},
	}
	for _, tc := range cases {
		uid, ans, ok := parsePuzzleData(tc.data)
		if uid != tc.uid || ans != tc.ans || ok != tc.ok {
			t.Fatalf("parsePuzzleData(%q) = %d %d %v", tc.data, uid, ans, ok)
		}
	}
}

func TestHideName(t *testing.T) {
	if !hideName(moddom.Decision{Reason: "lookalike words: [дoход]"}) {
		t.Fatal("lookalike reason should hide the name")
	}
	if !hideName(moddom.Decision{Reason: "display name too long"}) {
		t.Fatal("name reason should hide the name")
	}
	if hideName(moddom.Decision{Reason: "stop word: казино"}) {
		t.Fatal("stop word reason should not hide the name")
	}
}
