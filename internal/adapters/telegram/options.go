package telegram

import (
	"doorman/internal/platform/config"
)

// Options configures the bot transport
type Options struct {
	// Token is the bot API token, required
	Token string

	// AdminChatID receives reports and manual review escalations
	AdminChatID int64

	// Chats restricts moderation to these chat ids, empty means all
	Chats map[int64]struct{}

	// Workers is how many dispatch goroutines consume updates,
	// one (chat, user) pair always lands on the same worker
	Workers int

	// Debug turns on bot API request logging
	Debug bool
}

// FromConfig reads with TG_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("TG_")
	return Options{
		Token:       c.MayString("TOKEN", ""),
		AdminChatID: c.MayInt64("ADMIN_CHAT_ID", 0),
		Chats:       c.MayIDSet("CHATS"),
		Workers:     c.MayInt("WORKERS", 0),
		Debug:       c.MayBool("DEBUG", false),
	}
}
