// Package telegram runs the bot update loop and executes pipeline decisions
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"doorman/internal/core/badmsg"
	perr "doorman/internal/platform/errors"
	"doorman/internal/platform/logger"
	chdom "doorman/internal/services/challenge/domain"
	moddom "doorman/internal/services/moderation/domain"
	trustdom "doorman/internal/services/trust/domain"
)

// API is the slice of the bot client the transport uses, seam for tests
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type pairKey struct{ chat, user int64 }

// Bot wires Telegram updates into the pipeline and acts on its decisions
type Bot struct {
	api        API
	log        logger.Logger
	opts       Options
	pipeline   moddom.PipelinePort
	challenges chdom.ManagerPort
	trust      trustdom.StorePort
	bad        *badmsg.Set

	mu      sync.Mutex
	puzzles map[pairKey]int // captcha message id awaiting deletion
}

// Deps collects the bot's collaborators
type Deps struct {
	Log        logger.Logger
	Pipeline   moddom.PipelinePort
	Challenges chdom.ManagerPort
	Trust      trustdom.StorePort
	BadMsgs    *badmsg.Set
}

// New dials the bot API and returns the transport
func New(deps Deps, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "bot api dial failed")
	}
	api.Debug = opts.Debug
	b := newWith(api, deps, opts)
	b.log.Info().Str("username", api.Self.UserName).Msg("bot authorized")
	return b, nil
}

func newWith(api API, deps Deps, opts Options) *Bot {
	return &Bot{
		api:        api,
		log:        deps.Log.With().Str("adapter", "telegram").Logger(),
		opts:       opts,
		pipeline:   deps.Pipeline,
		challenges: deps.Challenges,
		trust:      deps.Trust,
		bad:        deps.BadMsgs,
		puzzles:    make(map[pairKey]int),
	}
}

// Bind attaches the pipeline and the challenge manager
// construction order forces this to happen after New, the challenge
// enforcer needs the bot and the pipeline needs the challenge manager
func (b *Bot) Bind(p moddom.PipelinePort, chs chdom.ManagerPort) {
	b.pipeline = p
	b.challenges = chs
}

// defaultWorkers bounds concurrent dispatch, a slow adapter call then
// stalls one lane instead of the whole update stream
const defaultWorkers = 8

const laneBuffer = 16

// Run consumes updates until ctx is done
// updates fan out across workers, a (chat, user) pair always hashes to
// the same lane so its events stay ordered
func (b *Bot) Run(ctx context.Context) error {
	if b.pipeline == nil || b.challenges == nil {
		return perr.Newf(perr.ErrorCodeInvalidArgument, "bot started before Bind")
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	n := b.opts.Workers
	if n <= 0 {
		n = defaultWorkers
	}
	lanes := make([]chan tgbotapi.Update, n)
	var wg sync.WaitGroup
	for i := range lanes {
		lane := make(chan tgbotapi.Update, laneBuffer)
		lanes[i] = lane
		wg.Add(1)
		go func() {
			defer wg.Done()
			for upd := range lane {
				b.dispatch(ctx, upd)
			}
		}()
	}
	defer func() {
		for _, lane := range lanes {
			close(lane)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			lanes[laneIndex(updateKey(upd), n)] <- upd
		}
	}
}

// updateKey extracts the (chat, user) pair the update is about
func updateKey(upd tgbotapi.Update) pairKey {
	switch {
	case upd.CallbackQuery != nil:
		var k pairKey
		if upd.CallbackQuery.Message != nil {
			k.chat = upd.CallbackQuery.Message.Chat.ID
		}
		if upd.CallbackQuery.From != nil {
			k.user = upd.CallbackQuery.From.ID
		}
		return k
	case upd.Message != nil:
		k := pairKey{chat: upd.Message.Chat.ID}
		if upd.Message.From != nil {
			k.user = upd.Message.From.ID
		}
		return k
	}
	return pairKey{}
}

func laneIndex(k pairKey, n int) int {
	// fnv-1a over both ids
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for _, v := range [2]uint64{uint64(k.chat), uint64(k.user)} {
		for i := 0; i < 8; i++ {
			h ^= (v >> (8 * i)) & 0xff
			h *= prime
		}
	}
	return int(h % uint64(n))
}

func (b *Bot) dispatch(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.onCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.onMessage(ctx, upd.Message)
	}
}

func (b *Bot) watched(chatID int64) bool {
	if len(b.opts.Chats) == 0 {
		return true
	}
	_, ok := b.opts.Chats[chatID]
	return ok
}

func (b *Bot) onMessage(ctx context.Context, m *tgbotapi.Message) {
	if !b.watched(m.Chat.ID) {
		return
	}

	if len(m.NewChatMembers) > 0 {
		for i := range m.NewChatMembers {
			u := m.NewChatMembers[i]
			if u.IsBot {
				continue
			}
			ev := moddom.Event{
				Type:     moddom.EventJoin,
				ChatID:   m.Chat.ID,
				UserID:   u.ID,
				FullName: fullName(&u),
				Username: u.UserName,
				JoinRef:  fmt.Sprintf("%d", m.MessageID),
			}
			b.execute(ctx, ev, b.pipeline.Evaluate(ctx, ev), m)
		}
		return
	}

	if m.From == nil || m.From.IsBot {
		return
	}

	ev := moddom.Event{
		Type:       moddom.EventMessage,
		ChatID:     m.Chat.ID,
		UserID:     m.From.ID,
		Text:       messageText(m),
		FullName:   fullName(m.From),
		Username:   m.From.UserName,
		HasButtons: m.ReplyMarkup != nil && len(m.ReplyMarkup.InlineKeyboard) > 0,
	}
	b.execute(ctx, ev, b.pipeline.Evaluate(ctx, ev), m)
}

// execute acts on a decision, transport failures are logged and absorbed
func (b *Bot) execute(ctx context.Context, ev moddom.Event, d moddom.Decision, m *tgbotapi.Message) {
	log := b.log.With().
		Int64("chat_id", ev.ChatID).
		Int64("user_id", ev.UserID).
		Str("action", string(d.Action)).
		Str("reason", d.Reason).
		Logger()

	switch d.Action {
	case moddom.ActionAllow:
		// nothing to do

	case moddom.ActionDelete:
		b.deleteMessage(ev.ChatID, m.MessageID)
		if b.bad != nil && ev.Text != "" {
			b.bad.Mark(ev.Text)
		}
		b.report(ev, d, m)
		log.Info().Msg("message deleted")

	case moddom.ActionBan:
		b.deleteMessage(ev.ChatID, m.MessageID)
		b.banMember(ev.ChatID, ev.UserID)
		if b.bad != nil && ev.Text != "" {
			b.bad.Mark(ev.Text)
		}
		if err := b.trust.Ban(ctx, ev.ChatID, ev.UserID, nil); err != nil {
			log.Error().Err(err).Msg("trust ban failed")
		}
		b.report(ev, d, m)
		log.Info().Msg("user banned")

	case moddom.ActionReport, moddom.ActionRequireManualReview:
		b.report(ev, d, m)
		log.Info().Msg("escalated to admins")

	case moddom.ActionChallenge:
		// a repeat join while a prompt is live must not replace it,
		// the stored message id is what CleanupPuzzle deletes later
		if d.Challenge != nil && !b.hasPuzzle(ev.ChatID, ev.UserID) {
			b.sendPuzzle(ev, *d.Challenge)
			log.Info().Msg("challenge sent")
		}
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("delete failed")
	}
}

func (b *Bot) banMember(chatID, userID int64) {
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		RevokeMessages:   true,
	}
	if _, err := b.api.Request(cfg); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Int64("user_id", userID).Msg("ban failed")
	}
}

func fullName(u *tgbotapi.User) string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func messageText(m *tgbotapi.Message) string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// hideName decides whether the admin report shows the display name,
// spammy names are themselves payload and should not be rendered
func hideName(d moddom.Decision) bool {
	return strings.Contains(d.Reason, "name") || strings.Contains(d.Reason, "lookalike") ||
		strings.HasPrefix(d.Reason, "blacklisted")
}
