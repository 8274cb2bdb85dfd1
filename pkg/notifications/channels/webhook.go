package channels

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

// EventNotification is the event name carried by every webhook envelope.
const EventNotification = "notification"

// HeaderNotificationID lets receivers deduplicate redelivered notifications.
const HeaderNotificationID = "X-Notification-ID"

// Envelope is the JSON body posted to webhook endpoints.
type Envelope struct {
	Event        string               `json:"event"`
	Timestamp    int64                `json:"timestamp"`
	Notification EnvelopeNotification `json:"notification"`
}

type EnvelopeNotification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Priority  notifications.Priority `json:"priority"`
	ActionURL *string                `json:"actionUrl"`
	Data      map[string]any         `json:"data"`
}

// NewEnvelope builds the webhook body for notif at ts.
func NewEnvelope(notif notifications.Notification, ts time.Time) Envelope {
	env := Envelope{
		Event:     EventNotification,
		Timestamp: ts.Unix(),
		Notification: EnvelopeNotification{
			ID:       notif.ID,
			UserID:   notif.UserID,
			Title:    notif.Title,
			Body:     notif.Body,
			Priority: notif.Priority,
			Data:     notif.Data,
		},
	}
	if notif.ActionURL != "" {
		u := notif.ActionURL
		env.Notification.ActionURL = &u
	}
	return env
}

// WebhookSender posts the notification envelope to the URL found in the
// notification data, signing it when a secret is configured.
type WebhookSender struct {
	sender   *webhook.Sender
	breakers *webhook.Breakers
	secret   string
	timeout  time.Duration
	devMode  bool
	now      func() time.Time
	logger   *slog.Logger
}

func NewWebhookSender(cfg TransportConfig, opts ...Option) *WebhookSender {
	o := newOptions(opts)
	failures := cfg.WebhookBreakerFailures
	if failures <= 0 {
		failures = 5
	}
	recovery := cfg.WebhookBreakerRecovery
	if recovery <= 0 {
		recovery = 30 * time.Second
	}
	return &WebhookSender{
		sender:   webhook.NewSenderWithClient(o.httpClient),
		breakers: webhook.NewBreakers(failures, 1, recovery),
		secret:   cfg.WebhookSecret,
		timeout:  cfg.WebhookTimeout,
		devMode:  cfg.DevMode(),
		now:      o.now,
		logger:   o.logger.With(logger.Component("webhook_sender")),
	}
}

func (s *WebhookSender) Send(ctx context.Context, notif notifications.Notification) notifications.Result {
	target := notif.DataString(notifications.DataWebhookURL, notifications.DataWebhookURLSnake)
	if target == "" {
		if s.devMode {
			s.logger.LogAttrs(ctx, slog.LevelInfo, "webhook not sent: no URL in notification data",
				logger.NotificationID(notif.ID),
				logger.UserID(notif.UserID),
			)
			return notifications.Succeeded()
		}
		return notifications.Failed("webhook URL not provided")
	}

	ts := s.now()
	payload, err := json.Marshal(NewEnvelope(notif, ts))
	if err != nil {
		return notifications.Failed("failed to encode webhook payload: %v", err)
	}

	opts := []webhook.SendOption{
		webhook.WithTimestamp(ts),
		webhook.WithHeader(HeaderNotificationID, notif.ID),
		webhook.WithCircuitBreaker(s.breakers.For(target)),
		webhook.WithOnDelivery(func(r webhook.DeliveryResult) {
			level := slog.LevelDebug
			if !r.Success {
				level = slog.LevelWarn
			}
			s.logger.LogAttrs(ctx, level, "webhook delivery attempted",
				logger.NotificationID(notif.ID),
				slog.Int("status", r.StatusCode),
				logger.Duration(r.Duration),
			)
		}),
	}
	if s.timeout > 0 {
		opts = append(opts, webhook.WithTimeout(s.timeout))
	}
	if s.secret != "" {
		opts = append(opts, webhook.WithSignature(s.secret))
	}

	if _, err := s.sender.Send(ctx, target, payload, opts...); err != nil {
		return notifications.FailedErr(err)
	}
	return notifications.Succeeded()
}
