package email

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender stores each email under dir as <stamp>_<slug>.html with a
// sibling .json envelope, for inspection in a browser.
type DevSender struct {
	dir string
	now func() time.Time
}

func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir, now: time.Now}
}

type envelope struct {
	SentAt  time.Time `json:"sent_at"`
	SendTo  string    `json:"send_to"`
	Subject string    `json:"subject"`
	Tag     string    `json:"tag,omitempty"`
}

func (d *DevSender) SendEmail(_ context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	sentAt := d.now().UTC()
	base := filepath.Join(d.dir, sentAt.Format("20060102T150405.000000")+"_"+slug(cmp.Or(params.Tag, params.Subject)))

	meta, err := json.MarshalIndent(envelope{
		SentAt:  sentAt,
		SendTo:  params.SendTo,
		Subject: params.Subject,
		Tag:     params.Tag,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode envelope: %w", ErrFailedToSendEmail, err)
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToSendEmail, err)
	}
	for ext, data := range map[string][]byte{".html": []byte(params.BodyHTML), ".json": meta} {
		if err := os.WriteFile(base+ext, data, 0o644); err != nil {
			return fmt.Errorf("%w: %w", ErrFailedToSendEmail, err)
		}
	}
	return nil
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9_.-]+`)

// slug turns a subject or tag into a short file name fragment.
func slug(s string) string {
	s = slugUnsafe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		return "email"
	}
	return s
}
