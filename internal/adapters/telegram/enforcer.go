package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	perr "doorman/internal/platform/errors"
	trustdom "doorman/internal/services/trust/domain"
)

// Enforcer applies challenge consequences through the bot API and the
// trust store together, a restricted user is also a temporarily banned one
type Enforcer struct {
	bot   *Bot
	trust trustdom.StorePort
}

// NewEnforcer builds the challenge enforcer
func NewEnforcer(bot *Bot, trust trustdom.StorePort) *Enforcer {
	return &Enforcer{bot: bot, trust: trust}
}

// TempBan mutes the user until the given time
func (e *Enforcer) TempBan(ctx context.Context, chatID, userID int64, until time.Time) error {
	e.bot.CleanupPuzzle(chatID, userID)

	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		UntilDate:        until.Unix(),
		Permissions:      &tgbotapi.ChatPermissions{},
	}
	if _, err := e.bot.api.Request(cfg); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "restrict failed")
	}
	return e.trust.Ban(ctx, chatID, userID, &until)
}

// LiftBan restores the user's permissions
func (e *Enforcer) LiftBan(ctx context.Context, chatID, userID int64) error {
	perms := tgbotapi.ChatPermissions{
		CanSendMessages:       true,
		CanSendMediaMessages:  true,
		CanSendPolls:          true,
		CanSendOtherMessages:  true,
		CanAddWebPagePreviews: true,
		CanInviteUsers:        true,
	}
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions:      &perms,
	}
	if _, err := e.bot.api.Request(cfg); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "unrestrict failed")
	}
	return e.trust.Unban(ctx, chatID, userID)
}
