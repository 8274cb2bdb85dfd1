// Package sms sends text messages through the Twilio REST API.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://api.twilio.com"
	DefaultMaxLength = 160
	DefaultTimeout   = 10 * time.Second
)

var (
	ErrInvalidConfig = errors.New("invalid sms configuration")
	ErrInvalidParams = errors.New("invalid sms parameters")
	ErrSendFailed    = errors.New("failed to send sms")
)

// Config holds Twilio credentials.
type Config struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber string `env:"TWILIO_FROM_NUMBER"`
	MaxLength  int    `env:"SMS_MAX_LENGTH" envDefault:"160"`
}

// Validate reports the first missing credential.
func (c Config) Validate() error {
	switch {
	case c.AccountSID == "":
		return fmt.Errorf("%w: TWILIO_ACCOUNT_SID is not configured", ErrInvalidConfig)
	case c.AuthToken == "":
		return fmt.Errorf("%w: TWILIO_AUTH_TOKEN is not configured", ErrInvalidConfig)
	case c.FromNumber == "":
		return fmt.Errorf("%w: TWILIO_FROM_NUMBER is not configured", ErrInvalidConfig)
	}
	return nil
}

// Client is a minimal Twilio Messages API client.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at another API host, mostly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client. Credentials are checked on every Send so a missing
// value surfaces as a delivery failure rather than a startup error.
func New(cfg Config, opts ...Option) *Client {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	c := &Client{
		cfg:        cfg,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Message is the API's view of an accepted message.
type Message struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Truncate cuts text to at most max runes.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max])
}

// Send delivers text to the given phone number. Text longer than the
// configured maximum is truncated.
func (c *Client) Send(ctx context.Context, to, text string) (*Message, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("%w: destination phone number is required", ErrInvalidParams)
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.FromNumber)
	form.Set("Body", Truncate(text, c.cfg.MaxLength))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Join(ErrSendFailed, err)
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrSendFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, errors.Join(ErrSendFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%w: twilio error %d: %s", ErrSendFailed, apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: twilio returned status %d", ErrSendFailed, resp.StatusCode)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, errors.Join(ErrSendFailed, err)
	}
	return &msg, nil
}
