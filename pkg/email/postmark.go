package email

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkSender delivers emails through the Postmark API.
type PostmarkSender struct {
	api     *postmark.Client
	from    string
	replyTo string
}

// NewPostmarkClient validates the Postmark part of cfg and returns a
// sender. SupportEmail, when set, becomes the Reply-To address.
func NewPostmarkClient(cfg Config) (*PostmarkSender, error) {
	if err := cfg.checkPostmark(); err != nil {
		return nil, err
	}
	return &PostmarkSender{
		api:     postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:    cfg.SenderEmail,
		replyTo: cfg.SupportEmail,
	}, nil
}

func (p *PostmarkSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	msg := postmark.Email{
		From:       p.from,
		ReplyTo:    p.replyTo,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	}
	resp, err := p.api.SendEmail(ctx, msg)
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", ErrFailedToSendEmail, err)
	case resp.ErrorCode != 0:
		return fmt.Errorf("%w: postmark code %d: %s", ErrFailedToSendEmail, resp.ErrorCode, resp.Message)
	}
	return nil
}
