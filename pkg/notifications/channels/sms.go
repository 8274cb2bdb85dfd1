package channels

import (
	"context"
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/sms"
)

// SMSSender sends the title and body as a single text message.
type SMSSender struct {
	client *sms.Client
}

func NewSMSSender(cfg TransportConfig, opts ...Option) *SMSSender {
	o := newOptions(opts)
	smsOpts := o.smsOpts
	if o.httpClient != nil {
		smsOpts = append([]sms.Option{sms.WithHTTPClient(o.httpClient)}, smsOpts...)
	}
	return &SMSSender{client: sms.New(cfg.SMS, smsOpts...)}
}

func (s *SMSSender) Send(ctx context.Context, notif notifications.Notification) notifications.Result {
	to := notif.DataString(notifications.DataPhone, notifications.DataPhoneNumber)
	if _, err := s.client.Send(ctx, to, smsText(notif)); err != nil {
		return notifications.FailedErr(err)
	}
	return notifications.Succeeded()
}

func smsText(n notifications.Notification) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{n.Title, n.Body} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}
