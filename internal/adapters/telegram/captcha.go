package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"doorman/internal/core/captcha"
	chdom "doorman/internal/services/challenge/domain"
	moddom "doorman/internal/services/moderation/domain"
)

// sendPuzzle posts the emoji keyboard for a freshly issued challenge
func (b *Bot) sendPuzzle(ev moddom.Event, ch chdom.Challenge) {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(ch.Puzzle.Options))
	for i, item := range ch.Puzzle.Options {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			captcha.Items[item].Emoji,
			fmt.Sprintf("cap_%d_%d", ev.UserID, i),
		))
	}

	msg := tgbotapi.NewMessage(ev.ChatID, fmt.Sprintf(
		"%s, нажми на «%s», чтобы остаться в чате", ev.FullName, ch.Puzzle.Prompt()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(row[:4]...),
		tgbotapi.NewInlineKeyboardRow(row[4:]...),
	)

	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Warn().Err(err).Int64("chat_id", ev.ChatID).Msg("puzzle send failed")
		return
	}

	b.mu.Lock()
	b.puzzles[pairKey{ev.ChatID, ev.UserID}] = sent.MessageID
	b.mu.Unlock()
}

func (b *Bot) hasPuzzle(chatID, userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.puzzles[pairKey{chatID, userID}]
	return ok
}

// CleanupPuzzle removes the keyboard message for a finished challenge,
// the challenge service calls this through OnExpired as well
func (b *Bot) CleanupPuzzle(chatID, userID int64) {
	b.mu.Lock()
	msgID, ok := b.puzzles[pairKey{chatID, userID}]
	delete(b.puzzles, pairKey{chatID, userID})
	b.mu.Unlock()
	if ok {
		b.deleteMessage(chatID, msgID)
	}
}

func (b *Bot) onCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	switch {
	case strings.HasPrefix(q.Data, "cap_"):
		b.onPuzzleCallback(ctx, q)
	case strings.HasPrefix(q.Data, "ban_"), strings.HasPrefix(q.Data, "ok_"):
		b.onAdminCallback(ctx, q)
	}
}

// onPuzzleCallback resolves a captcha press, presses by other users are
// acknowledged but change nothing
func (b *Bot) onPuzzleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	userID, answer, ok := parsePuzzleData(q.Data)
	if !ok || q.Message == nil {
		return
	}

	if q.From == nil || q.From.ID != userID {
		b.answerCallback(q.ID, "Кнопка не для тебя")
		return
	}

	chatID := q.Message.Chat.ID
	ch, status := b.challenges.Resolve(ctx, chatID, userID, answer)
	if status == chdom.NotFound {
		b.answerCallback(q.ID, "")
		return
	}

	switch ch.Outcome {
	case chdom.OutcomeCorrect:
		b.answerCallback(q.ID, "Добро пожаловать")
	case chdom.OutcomeIncorrect:
		b.answerCallback(q.ID, "Неверно")
	}
	b.CleanupPuzzle(chatID, userID)
}

// onAdminCallback applies a ban or approve button from an admin report
func (b *Bot) onAdminCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil || q.Message.Chat.ID != b.opts.AdminChatID {
		return
	}

	parts := strings.Split(q.Data, "_")
	if len(parts) != 3 {
		return
	}
	chatID, err1 := strconv.ParseInt(parts[1], 10, 64)
	userID, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil {
		return
	}

	switch parts[0] {
	case "ban":
		b.banMember(chatID, userID)
		if err := b.trust.Ban(ctx, chatID, userID, nil); err != nil {
			b.log.Error().Err(err).Msg("admin ban failed")
		}
		b.answerCallback(q.ID, "Забанен")
	case "ok":
		if err := b.trust.Approve(ctx, chatID, userID); err != nil {
			b.log.Error().Err(err).Msg("admin approve failed")
		}
		b.answerCallback(q.ID, "Одобрен")
	}

	// drop the buttons so the report cannot be acted on twice
	edit := tgbotapi.NewEditMessageReplyMarkup(b.opts.AdminChatID, q.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.api.Request(edit); err != nil {
		b.log.Debug().Err(err).Msg("report edit failed")
	}
}

func (b *Bot) answerCallback(id, text string) {
	cb := tgbotapi.NewCallback(id, text)
	if _, err := b.api.Request(cb); err != nil {
		b.log.Debug().Err(err).Msg("callback answer failed")
	}
}

func parsePuzzleData(data string) (userID int64, answer int, ok bool) {
	parts := strings.Split(data, "_")
	if len(parts) != 3 || parts[0] != "cap" {
		return 0, 0, false
	}
	uid, err1 := strconv.ParseInt(parts[1], 10, 64)
	idx, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return uid, idx, true
}
