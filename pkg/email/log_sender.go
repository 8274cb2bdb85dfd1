package email

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// LogSender records emails in the log instead of sending them. The recipient
// is logged as given and is not required to be an address.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{logger: log}
}

func (s *LogSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.ValidateContent(); err != nil {
		return err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "email not sent: log-only provider",
		logger.Provider(string(ProviderLog)),
		slog.String("to", params.SendTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
		slog.Int("html_bytes", len(params.BodyHTML)),
	)
	return nil
}
