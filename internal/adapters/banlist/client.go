// Package banlist queries an external spammer blacklist over HTTP
package banlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"doorman/internal/platform/clock"
	perr "doorman/internal/platform/errors"
	"doorman/internal/platform/logger"
)

const (
	baseURLDefault = "https://api.lols.bot"
	defaultTimeout = 5 * time.Second
	defaultTTL     = 10 * time.Minute
	defaultUA      = "doorman-bot"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// CacheTTL bounds how long a lookup result is reused
	CacheTTL time.Duration
}

type entry struct {
	banned bool
	at     time.Time
}

// Client checks user ids against the blacklist with a small result cache
// A failed lookup is an error, never a clean verdict
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
	clk  clock.Clock

	mu    sync.Mutex
	cache map[int64]entry
}

// New creates a Client with sane defaults
func New(log logger.Logger, clk clock.Clock, o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaultTTL
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   log.With().Str("adapter", "banlist").Logger(),
		clk:   clk,
		cache: make(map[int64]entry),
	}
}

type accountResponse struct {
	Banned bool `json:"banned"`
}

// Lookup reports whether the user is on the blacklist
func (c *Client) Lookup(ctx context.Context, userID int64) (bool, error) {
	now := c.clk.Now()

	c.mu.Lock()
	if e, ok := c.cache[userID]; ok && now.Sub(e.at) < c.opts.CacheTTL {
		c.mu.Unlock()
		return e.banned, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/account?id=%d", c.opts.BaseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, perr.Wrapf(err, perr.ErrorCodeUnknown, "banlist new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, perr.Wrapf(err, perr.ErrorCodeUnavailable, "banlist lookup failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, perr.Newf(perr.ErrorCodeUnavailable,
			"banlist unexpected status %d body %s", resp.StatusCode, string(body))
	}

	var acc accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&acc); err != nil {
		return false, perr.Wrapf(err, perr.ErrorCodeUnknown, "banlist decode failed")
	}

	c.mu.Lock()
	c.cache[userID] = entry{banned: acc.Banned, at: now}
	c.mu.Unlock()

	c.log.Debug().Int64("user_id", userID).Bool("banned", acc.Banned).Msg("banlist lookup")
	return acc.Banned, nil
}
