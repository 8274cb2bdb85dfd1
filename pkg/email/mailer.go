// Package email sends transactional emails through Postmark, or records
// them locally during development.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/validator"
)

type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidAddress reports whether s looks like an email address.
func ValidAddress(s string) bool {
	return emailRegex.MatchString(strings.TrimSpace(s))
}

// Validate checks the recipient and the content. Delivering providers require
// a real address.
func (p SendEmailParams) Validate() error {
	return p.apply(
		validator.RequiredString("send_to", p.SendTo),
		validator.When(strings.TrimSpace(p.SendTo) != "",
			validator.Custom("send_to", "must be a valid email address", func() bool { return ValidAddress(p.SendTo) })),
	)
}

// ValidateContent checks only the subject and body. The log provider uses it
// since it accepts any recipient string.
func (p SendEmailParams) ValidateContent() error {
	return p.apply()
}

func (p SendEmailParams) apply(recipient ...validator.Rule) error {
	rules := append(recipient,
		validator.RequiredString("subject", p.Subject),
		validator.RequiredString("body_html", p.BodyHTML),
	)
	if err := validator.Apply(rules...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

// New returns the sender for cfg.Provider. Postmark configuration is checked
// here; callers that must not fail at startup should handle the error by
// reporting it at send time.
func New(cfg Config, log *slog.Logger) (EmailSender, error) {
	switch cfg.Provider {
	case ProviderLog, "":
		return NewLogSender(log), nil
	case ProviderFile:
		return NewDevSender(cfg.OutputDir), nil
	case ProviderPostmark:
		pm, err := NewPostmarkClient(cfg)
		if err != nil {
			return nil, err
		}
		return pm, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
