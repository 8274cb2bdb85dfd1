package channels

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// NewSenders builds the sender lookup table for all channels.
func NewSenders(cfg TransportConfig, opts ...Option) notifications.Senders {
	return notifications.Senders{
		notifications.ChannelEmail:   NewEmailSender(cfg, opts...),
		notifications.ChannelPush:    NewPushSender(cfg, opts...),
		notifications.ChannelSMS:     NewSMSSender(cfg, opts...),
		notifications.ChannelWebhook: NewWebhookSender(cfg, opts...),
		notifications.ChannelInApp:   InApp(),
	}
}

// InApp returns the in-app sender. In-app notifications are read from the
// notification store, so delivery is only a marker and always succeeds.
func InApp() notifications.Sender {
	return notifications.SenderFunc(func(context.Context, notifications.Notification) notifications.Result {
		return notifications.Succeeded()
	})
}
