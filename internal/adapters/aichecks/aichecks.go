// Package aichecks asks an LLM how likely a profile belongs to a spammer
package aichecks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	perr "doorman/internal/platform/errors"
	"doorman/internal/platform/logger"
	"doorman/internal/services/moderation/domain"
)

const (
	defaultModel   = openai.GPT4oMini
	defaultTimeout = 15 * time.Second
)

const systemPrompt = `You review Telegram profiles for a group anti-spam bot.
Given a profile and the user's first message, estimate the probability that
this account was created to spam. Respond with JSON only:
{"probability": <0..1>, "reason": "<one short sentence>"}`

// Options configures the Checker
type Options struct {
	// APIKey is required, an empty key disables the adapter at wiring time
	APIKey string

	// BaseURL overrides the endpoint, set it for OpenRouter style gateways
	BaseURL string

	Model   string
	Timeout time.Duration
}

type verdict struct {
	Probability float64 `json:"probability"`
	Reason      string  `json:"reason"`
}

// Checker implements the profile analyzer port
// verdicts are cached per user, a profile rarely changes mid-raid
type Checker struct {
	client *openai.Client
	opts   Options
	log    logger.Logger

	mu    sync.Mutex
	cache map[int64]verdict
}

// New creates a Checker
func New(log logger.Logger, o Options) *Checker {
	if o.Model == "" {
		o.Model = defaultModel
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	cfg := openai.DefaultConfig(o.APIKey)
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	return &Checker{
		client: openai.NewClientWithConfig(cfg),
		opts:   o,
		log:    log.With().Str("adapter", "aichecks").Logger(),
		cache:  make(map[int64]verdict),
	}
}

// Analyze estimates the spammer probability for a profile
func (c *Checker) Analyze(ctx context.Context, p domain.Profile, firstMessage string) (float64, string, error) {
	c.mu.Lock()
	if v, ok := c.cache[p.UserID]; ok {
		c.mu.Unlock()
		return v.Probability, v.Reason, nil
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: c.prompt(p, firstMessage)},
		},
		Temperature: 0,
	})
	if err != nil {
		return 0, "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "profile completion failed")
	}
	if len(resp.Choices) == 0 {
		return 0, "", perr.Newf(perr.ErrorCodeUnavailable, "profile completion returned no choices")
	}

	v, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return 0, "", err
	}

	c.mu.Lock()
	c.cache[p.UserID] = v
	c.mu.Unlock()

	c.log.Debug().
		Int64("user_id", p.UserID).
		Float64("probability", v.Probability).
		Str("reason", v.Reason).
		Msg("profile analyzed")
	return v.Probability, v.Reason, nil
}

// Forget drops the cached verdict, used after admin overrides
func (c *Checker) Forget(userID int64) {
	c.mu.Lock()
	delete(c.cache, userID)
	c.mu.Unlock()
}

func (c *Checker) prompt(p domain.Profile, firstMessage string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.FullName)
	if p.Username != "" {
		fmt.Fprintf(&b, "Username: @%s\n", p.Username)
	}
	if p.Bio != "" {
		fmt.Fprintf(&b, "Bio: %s\n", p.Bio)
	}
	if firstMessage != "" {
		fmt.Fprintf(&b, "First message: %s\n", firstMessage)
	}
	return b.String()
}

// parseVerdict tolerates a JSON object wrapped in prose or code fences
func parseVerdict(content string) (verdict, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return verdict{}, perr.Newf(perr.ErrorCodeUnknown, "profile verdict has no JSON object: %q", content)
	}
	var v verdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &v); err != nil {
		return verdict{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "profile verdict parse failed")
	}
	if v.Probability < 0 || v.Probability > 1 {
		return verdict{}, perr.Newf(perr.ErrorCodeUnknown, "profile probability %v out of range", v.Probability)
	}
	return v, nil
}
