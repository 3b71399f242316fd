package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	moddom "doorman/internal/services/moderation/domain"
)

// report escalates a decision to the admin chat with action buttons
func (b *Bot) report(ev moddom.Event, d moddom.Decision, m *tgbotapi.Message) {
	if b.opts.AdminChatID == 0 {
		return
	}

	name := ev.FullName
	if hideName(d) {
		name = fmt.Sprintf("user %d", ev.UserID)
	}

	text := fmt.Sprintf("%s in chat %d\n%s: %s", name, ev.ChatID, d.Action, d.Reason)
	if ev.Text != "" && d.Action != moddom.ActionBan {
		text += "\n\n" + clip(ev.Text, 500)
	}

	msg := tgbotapi.NewMessage(b.opts.AdminChatID, text)
	if d.Action == moddom.ActionReport || d.Action == moddom.ActionRequireManualReview {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("ban",
					fmt.Sprintf("ban_%d_%d", ev.ChatID, ev.UserID)),
				tgbotapi.NewInlineKeyboardButtonData("approve",
					fmt.Sprintf("ok_%d_%d", ev.ChatID, ev.UserID)),
			),
		)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn().Err(err).Msg("admin report failed")
	}
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
