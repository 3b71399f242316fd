// Package classifier calls the statistical spam scoring service
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	perr "doorman/internal/platform/errors"
	"doorman/internal/platform/logger"
	"doorman/internal/services/moderation/domain"
)

const (
	defaultTimeout = 5 * time.Second
	defaultPath    = "/predict"
)

// Options configures the Client
type Options struct {
	BaseURL string
	Path    string
	Timeout time.Duration
}

// Client scores text against the external classifier
// Scores are signed, positive leans spam and negative leans ham
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// New creates a Client, BaseURL is required
func New(log logger.Logger, o Options) *Client {
	if o.Path == "" {
		o.Path = defaultPath
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  log.With().Str("adapter", "classifier").Logger(),
	}
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Spam  bool    `json:"spam"`
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// Classify scores one message
func (c *Client) Classify(ctx context.Context, text string) (domain.SignalVerdict, error) {
	body, err := json.Marshal(predictRequest{Text: text})
	if err != nil {
		return domain.SignalVerdict{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "classifier marshal failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+c.opts.Path, bytes.NewReader(body))
	if err != nil {
		return domain.SignalVerdict{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "classifier new request failed")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.SignalVerdict{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "classifier call failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.SignalVerdict{}, perr.Newf(perr.ErrorCodeUnavailable,
			"classifier status %d body %s", resp.StatusCode, string(tail))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.SignalVerdict{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "classifier decode failed")
	}

	c.log.Debug().
		Bool("spam", out.Spam).
		Float64("score", out.Score).
		Dur("latency", time.Since(start)).
		Msg("classifier verdict")

	return domain.SignalVerdict{OK: true, Spam: out.Spam, Score: out.Score, Detail: out.Label}, nil
}
