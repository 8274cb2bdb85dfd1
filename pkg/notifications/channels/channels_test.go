package channels_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifications/channels"
	"github.com/dmitrymomot/notifykit/pkg/sms"
	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func prodConfig() channels.TransportConfig {
	return channels.TransportConfig{AppEnv: "production"}
}

func baseOpts(extra ...channels.Option) []channels.Option {
	return append([]channels.Option{
		channels.WithLogger(quietLogger()),
		channels.WithClock(func() time.Time { return fixedNow }),
	}, extra...)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
	err  error
}

func (m *recordingMailer) SendEmail(_ context.Context, p email.SendEmailParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, p)
	return m.err
}

func TestTransportConfig_DevMode(t *testing.T) {
	t.Parallel()

	assert.True(t, channels.TransportConfig{}.DevMode())
	assert.True(t, channels.TransportConfig{AppEnv: "dev"}.DevMode())
	assert.False(t, channels.TransportConfig{AppEnv: "staging"}.DevMode())
	assert.False(t, prodConfig().DevMode())
}

func TestNewSenders(t *testing.T) {
	t.Parallel()

	senders := channels.NewSenders(prodConfig(), baseOpts()...)
	for _, c := range notifications.Channels {
		assert.Contains(t, senders, c)
	}

	res := senders[notifications.ChannelInApp].Send(context.Background(), notifications.Notification{ID: "n1"})
	assert.True(t, res.Success)
}

func TestEmailSender(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("recipient from data", func(t *testing.T) {
		t.Parallel()

		mailer := &recordingMailer{}
		s := channels.NewEmailSender(prodConfig(), baseOpts(channels.WithMailer(mailer))...)

		res := s.Send(ctx, notifications.Notification{
			ID:        "n1",
			UserID:    "user-1",
			Title:     "Invoice ready",
			Body:      "Your invoice is attached.",
			ActionURL: "https://example.com/invoices/1",
			Category:  "billing",
			Data:      map[string]any{"email": "jane@example.com"},
		})
		require.True(t, res.Success, res.Error)
		require.Len(t, mailer.sent, 1)

		sent := mailer.sent[0]
		assert.Equal(t, "jane@example.com", sent.SendTo)
		assert.Equal(t, "Invoice ready", sent.Subject)
		assert.Equal(t, "billing", sent.Tag)
		assert.Contains(t, sent.BodyHTML, "<p>Your invoice is attached.</p>")
		assert.Contains(t, sent.BodyHTML, "https://example.com/invoices/1")
	})

	t.Run("falls back to user id", func(t *testing.T) {
		t.Parallel()

		mailer := &recordingMailer{}
		s := channels.NewEmailSender(prodConfig(), baseOpts(channels.WithMailer(mailer))...)

		res := s.Send(ctx, notifications.Notification{UserID: "bob@example.com", Title: "Hi"})
		require.True(t, res.Success)
		assert.Equal(t, "bob@example.com", mailer.sent[0].SendTo)
		assert.Equal(t, "notification", mailer.sent[0].Tag)
	})

	t.Run("provider error", func(t *testing.T) {
		t.Parallel()

		mailer := &recordingMailer{err: email.ErrFailedToSendEmail}
		s := channels.NewEmailSender(prodConfig(), baseOpts(channels.WithMailer(mailer))...)

		res := s.Send(ctx, notifications.Notification{UserID: "bob@example.com", Title: "Hi"})
		assert.False(t, res.Success)
		assert.Equal(t, "failed to send email", res.Error)
	})

	t.Run("missing postmark configuration", func(t *testing.T) {
		t.Parallel()

		cfg := prodConfig()
		cfg.Email.Provider = email.ProviderPostmark
		s := channels.NewEmailSender(cfg, baseOpts()...)

		res := s.Send(ctx, notifications.Notification{UserID: "bob@example.com", Title: "Hi"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "PostmarkServerToken is required")
	})

	t.Run("log provider", func(t *testing.T) {
		t.Parallel()

		s := channels.NewEmailSender(channels.TransportConfig{}, baseOpts()...)
		res := s.Send(ctx, notifications.Notification{UserID: "bob@example.com", Title: "Hi", Body: "there"})
		assert.True(t, res.Success, res.Error)
	})

	t.Run("log provider accepts a plain user id", func(t *testing.T) {
		t.Parallel()

		s := channels.NewEmailSender(channels.TransportConfig{}, baseOpts()...)
		res := s.Send(ctx, notifications.Notification{ID: "n1", UserID: "user-42", Title: "Hi", Body: "there"})
		assert.True(t, res.Success, res.Error)
	})

	t.Run("file provider requires an address", func(t *testing.T) {
		t.Parallel()

		cfg := channels.TransportConfig{}
		cfg.Email.Provider = email.ProviderFile
		cfg.Email.OutputDir = t.TempDir()
		s := channels.NewEmailSender(cfg, baseOpts()...)

		res := s.Send(ctx, notifications.Notification{ID: "n1", UserID: "user-42", Title: "Hi", Body: "there"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "send_to: must be a valid email address")
	})
}

func TestPushSender(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sub := map[string]any{
		"endpoint": "https://push.example.com/abc",
		"keys":     map[string]any{"p256dh": "pk", "auth": "ak"},
	}

	t.Run("no subscription succeeds without sending", func(t *testing.T) {
		t.Parallel()

		s := channels.NewPushSender(prodConfig(), baseOpts()...)
		res := s.Send(ctx, notifications.Notification{ID: "n1", Title: "Hi"})
		assert.True(t, res.Success)
	})

	t.Run("missing VAPID keys in production", func(t *testing.T) {
		t.Parallel()

		s := channels.NewPushSender(prodConfig(), baseOpts()...)
		res := s.Send(ctx, notifications.Notification{ID: "n1", Data: map[string]any{"pushSubscription": sub}})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "VAPID")
	})

	t.Run("missing VAPID keys in development", func(t *testing.T) {
		t.Parallel()

		s := channels.NewPushSender(channels.TransportConfig{AppEnv: "development"}, baseOpts()...)
		res := s.Send(ctx, notifications.Notification{ID: "n1", Data: map[string]any{"pushSubscription": sub}})
		assert.True(t, res.Success)
	})

	t.Run("malformed subscription", func(t *testing.T) {
		t.Parallel()

		cfg := prodConfig()
		cfg.Push.VAPIDPublicKey = "pub"
		cfg.Push.VAPIDPrivateKey = "priv"
		s := channels.NewPushSender(cfg, baseOpts()...)

		res := s.Send(ctx, notifications.Notification{ID: "n1", Data: map[string]any{"pushSubscription": "not json"}})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "invalid push subscription")
	})
}

func TestSMSSender(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		bodies = append(bodies, r.PostForm.Get("Body"))
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	cfg := prodConfig()
	cfg.SMS = sms.Config{AccountSID: "AC1", AuthToken: "tok", FromNumber: "+15550000000"}
	s := channels.NewSMSSender(cfg, baseOpts(channels.WithSMSOptions(sms.WithBaseURL(srv.URL)))...)
	ctx := context.Background()

	res := s.Send(ctx, notifications.Notification{Title: "Code", Body: "123456", Data: map[string]any{"phoneNumber": "+15551112222"}})
	require.True(t, res.Success, res.Error)

	res = s.Send(ctx, notifications.Notification{Title: "Code", Body: "123456"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "destination phone number is required")

	unconfigured := channels.NewSMSSender(prodConfig(), baseOpts(channels.WithSMSOptions(sms.WithBaseURL(srv.URL)))...)
	res = unconfigured.Send(ctx, notifications.Notification{Title: "Code", Data: map[string]any{"phone": "+1555"}})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "TWILIO_ACCOUNT_SID")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Code\n123456"}, bodies)
}

type capturedRequest struct {
	body           string
	signature      string
	timestamp      string
	notificationID string
}

func webhookServer(t *testing.T, status int) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()

	reqs := make(chan capturedRequest, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs <- capturedRequest{
			body:           string(body),
			signature:      r.Header.Get(webhook.HeaderSignature),
			timestamp:      r.Header.Get(webhook.HeaderTimestamp),
			notificationID: r.Header.Get(channels.HeaderNotificationID),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, reqs
}

func TestWebhookSender_Envelope(t *testing.T) {
	t.Parallel()

	srv, reqs := webhookServer(t, http.StatusOK)

	cfg := prodConfig()
	cfg.WebhookSecret = "s3cret"
	s := channels.NewWebhookSender(cfg, baseOpts()...)

	res := s.Send(context.Background(), notifications.Notification{
		ID:        "n1",
		UserID:    "u1",
		Title:     "Hello",
		Body:      "World",
		Priority:  notifications.PriorityHigh,
		ActionURL: "https://example.com/x",
		Data:      map[string]any{"webhookUrl": srv.URL + "/hook"},
	})
	require.True(t, res.Success, res.Error)

	got := <-reqs
	expected := `{"event":"notification","timestamp":1709294400,"notification":{"id":"n1","userId":"u1","title":"Hello","body":"World","priority":"high","actionUrl":"https://example.com/x","data":{"webhookUrl":"` + srv.URL + `/hook"}}}`
	assert.Equal(t, expected, got.body)
	assert.Equal(t, strconv.FormatInt(fixedNow.Unix(), 10), got.timestamp)
	assert.Equal(t, "n1", got.notificationID)

	sig, err := webhook.SignPayload("s3cret", []byte(got.body))
	require.NoError(t, err)
	assert.Equal(t, sig, got.signature)
}

func TestWebhookSender_NoSecretNoSignature(t *testing.T) {
	t.Parallel()

	srv, reqs := webhookServer(t, http.StatusAccepted)
	s := channels.NewWebhookSender(prodConfig(), baseOpts()...)

	res := s.Send(context.Background(), notifications.Notification{
		ID:   "n1",
		Data: map[string]any{"webhook_url": srv.URL},
	})
	require.True(t, res.Success, res.Error)

	got := <-reqs
	assert.Empty(t, got.signature)
	assert.NotEmpty(t, got.timestamp)
	assert.Contains(t, got.body, `"actionUrl":null`)
}

func TestNewEnvelope_NullFields(t *testing.T) {
	t.Parallel()

	env := channels.NewEnvelope(notifications.Notification{ID: "n1"}, fixedNow)
	assert.Nil(t, env.Notification.ActionURL)
	assert.Nil(t, env.Notification.Data)
	assert.Equal(t, channels.EventNotification, env.Event)
}

func TestWebhookSender_Failures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing URL in production", func(t *testing.T) {
		t.Parallel()

		res := channels.NewWebhookSender(prodConfig(), baseOpts()...).Send(ctx, notifications.Notification{ID: "n1"})
		assert.False(t, res.Success)
		assert.Equal(t, "webhook URL not provided", res.Error)
	})

	t.Run("missing URL in development", func(t *testing.T) {
		t.Parallel()

		res := channels.NewWebhookSender(channels.TransportConfig{}, baseOpts()...).Send(ctx, notifications.Notification{ID: "n1"})
		assert.True(t, res.Success)
	})

	t.Run("non-2xx response", func(t *testing.T) {
		t.Parallel()

		srv, _ := webhookServer(t, http.StatusInternalServerError)
		res := channels.NewWebhookSender(prodConfig(), baseOpts()...).Send(ctx, notifications.Notification{
			ID:   "n1",
			Data: map[string]any{"webhookUrl": srv.URL},
		})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "status 500")
	})

	t.Run("circuit opens per host", func(t *testing.T) {
		t.Parallel()

		srv, reqs := webhookServer(t, http.StatusBadGateway)
		cfg := prodConfig()
		cfg.WebhookBreakerFailures = 2
		cfg.WebhookBreakerRecovery = time.Hour
		s := channels.NewWebhookSender(cfg, baseOpts()...)
		notif := notifications.Notification{ID: "n1", Data: map[string]any{"webhookUrl": srv.URL}}

		for range 2 {
			assert.False(t, s.Send(ctx, notif).Success)
		}
		res := s.Send(ctx, notif)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "circuit breaker is open")
		assert.Len(t, reqs, 2)
	})
}
