package channels

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/push"
)

// PushSender delivers notifications as Web Push messages to the
// subscription found in the notification data.
type PushSender struct {
	client  *push.Client
	devMode bool
	logger  *slog.Logger
}

func NewPushSender(cfg TransportConfig, opts ...Option) *PushSender {
	o := newOptions(opts)
	var pushOpts []push.Option
	if o.httpClient != nil {
		pushOpts = append(pushOpts, push.WithHTTPClient(o.httpClient))
	}
	return &PushSender{
		client:  push.New(cfg.Push, pushOpts...),
		devMode: cfg.DevMode(),
		logger:  o.logger.With(logger.Component("push_sender")),
	}
}

func (s *PushSender) Send(ctx context.Context, notif notifications.Notification) notifications.Result {
	raw, ok := notif.Data[notifications.DataPushSubscription]
	if !ok || raw == nil {
		// Users without a subscription simply receive nothing.
		return notifications.Succeeded()
	}

	if !s.client.Configured() {
		if s.devMode {
			s.logger.LogAttrs(ctx, slog.LevelInfo, "push not sent: VAPID keys are not configured",
				logger.NotificationID(notif.ID),
				logger.UserID(notif.UserID),
			)
			return notifications.Succeeded()
		}
		return notifications.FailedErr(push.ErrNotConfigured)
	}

	sub, err := push.ParseSubscription(raw)
	if err != nil {
		return notifications.FailedErr(err)
	}

	err = s.client.Send(ctx, sub, push.Message{
		Title: notif.Title,
		Body:  notif.Body,
		URL:   notif.ActionURL,
		Data:  notif.Data,
	}, urgency(notif.Priority))
	if err != nil {
		return notifications.FailedErr(err)
	}
	return notifications.Succeeded()
}

func urgency(p notifications.Priority) push.Urgency {
	switch p {
	case notifications.PriorityLow:
		return push.UrgencyLow
	case notifications.PriorityHigh, notifications.PriorityUrgent:
		return push.UrgencyHigh
	default:
		return push.UrgencyNormal
	}
}
