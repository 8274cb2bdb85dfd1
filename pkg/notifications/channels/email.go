package channels

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/email/templates"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// EmailSender renders notifications into the HTML email layout and hands
// them to the configured email provider.
type EmailSender struct {
	mailer    email.EmailSender
	configErr error
	logger    *slog.Logger
}

func NewEmailSender(cfg TransportConfig, opts ...Option) *EmailSender {
	o := newOptions(opts)
	s := &EmailSender{
		mailer: o.mailer,
		logger: o.logger.With(logger.Component("email_sender")),
	}
	if s.mailer == nil {
		s.mailer, s.configErr = email.New(cfg.Email, o.logger)
	}
	return s
}

func (s *EmailSender) Send(ctx context.Context, notif notifications.Notification) notifications.Result {
	if s.configErr != nil {
		return notifications.FailedErr(s.configErr)
	}

	html, err := templates.Render(ctx, templates.Notification(templates.NotificationEmail{
		Title:     notif.Title,
		Body:      notif.Body,
		ActionURL: notif.ActionURL,
	}))
	if err != nil {
		return notifications.Failed("failed to render email: %v", err)
	}

	recipient := notif.DataString(notifications.DataEmail)
	if recipient == "" {
		recipient = notif.UserID
	}
	tag := notif.Category
	if tag == "" {
		tag = "notification"
	}

	subject := notif.Title
	if subject == "" {
		subject = "Notification"
	}

	if err := s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   recipient,
		Subject:  subject,
		BodyHTML: html,
		Tag:      tag,
	}); err != nil {
		return notifications.FailedErr(err)
	}
	return notifications.Succeeded()
}
