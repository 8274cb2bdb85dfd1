// Package push delivers Web Push messages signed with VAPID keys.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const DefaultTTL = 86400

var (
	ErrNotConfigured       = errors.New("push notifications not configured: VAPID keys are missing")
	ErrInvalidSubscription = errors.New("invalid push subscription")
	ErrSendFailed          = errors.New("failed to send push notification")
)

// Config holds the VAPID key pair and the contact used as JWT subject.
type Config struct {
	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	Subject         string `env:"VAPID_SUBJECT" envDefault:"mailto:notifications@example.com"`
	TTL             int    `env:"PUSH_TTL" envDefault:"86400"`
}

// Configured reports whether both VAPID keys are set.
func (c Config) Configured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// Subscription is a browser push subscription as produced by PushManager.subscribe().
type Subscription = webpush.Subscription

// Message is the JSON payload delivered to the service worker.
type Message struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	URL   string         `json:"url,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Urgency hints the push service about delivery priority.
type Urgency = webpush.Urgency

const (
	UrgencyLow    = webpush.UrgencyLow
	UrgencyNormal = webpush.UrgencyNormal
	UrgencyHigh   = webpush.UrgencyHigh
)

type Client struct {
	cfg        Config
	httpClient webpush.HTTPClient
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	c := &Client{cfg: cfg, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has VAPID keys.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

// ParseSubscription accepts a subscription as a JSON string, raw bytes, a
// decoded JSON object or a *Subscription.
func ParseSubscription(v any) (*Subscription, error) {
	var raw []byte
	switch s := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: subscription is empty", ErrInvalidSubscription)
	case *Subscription:
		raw, _ = json.Marshal(s)
	case Subscription:
		raw, _ = json.Marshal(s)
	case string:
		raw = []byte(s)
	case []byte:
		raw = s
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return nil, errors.Join(ErrInvalidSubscription, err)
		}
		raw = b
	}

	var sub Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, errors.Join(ErrInvalidSubscription, err)
	}
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return nil, fmt.Errorf("%w: endpoint and keys are required", ErrInvalidSubscription)
	}
	return &sub, nil
}

// Send encrypts msg for sub and posts it to the subscription endpoint.
func (c *Client) Send(ctx context.Context, sub *Subscription, msg Message, urgency Urgency) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if sub == nil {
		return fmt.Errorf("%w: subscription is empty", ErrInvalidSubscription)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if urgency == "" {
		urgency = UrgencyNormal
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		HTTPClient:      c.httpClient,
		Subscriber:      c.cfg.Subject,
		TTL:             c.cfg.TTL,
		Urgency:         urgency,
		VAPIDPublicKey:  c.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: c.cfg.VAPIDPrivateKey,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			return fmt.Errorf("%w: push service returned status %d", ErrSendFailed, resp.StatusCode)
		}
		return fmt.Errorf("%w: push service returned status %d: %s", ErrSendFailed, resp.StatusCode, msg)
	}
	return nil
}

// GenerateKeys returns a new VAPID key pair.
func GenerateKeys() (privateKey, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}
