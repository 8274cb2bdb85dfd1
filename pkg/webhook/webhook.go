package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	userAgent       = "notifykit-webhook/1.0"
	maxResponseBody = 64 << 10
	maxErrorSnippet = 200
)

// Sender posts JSON payloads to webhook endpoints. Each Send is a single
// attempt; retry policy belongs to the caller.
type Sender struct {
	client *http.Client
}

// NewSender returns a Sender with a pooled HTTP client.
func NewSender() *Sender {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Sender{client: &http.Client{Timeout: 30 * time.Second, Transport: transport}}
}

// NewSenderWithClient returns a Sender using client, or NewSender when
// client is nil.
func NewSenderWithClient(client *http.Client) *Sender {
	if client == nil {
		return NewSender()
	}
	return &Sender{client: client}
}

// Send posts payload to endpoint unchanged. The payload bytes are what gets
// signed, so callers must not re-encode them.
//
// X-Webhook-Timestamp is always sent. X-Webhook-Signature is sent only when
// WithSignature supplies a secret. Any non-2xx status is an error.
func (s *Sender) Send(ctx context.Context, endpoint string, payload []byte, opts ...SendOption) (DeliveryResult, error) {
	if err := validate(endpoint, payload); err != nil {
		return DeliveryResult{Error: err}, err
	}

	r := newRequest(opts)
	if r.breaker != nil && !r.breaker.Allow() {
		return DeliveryResult{Error: ErrCircuitOpen}, ErrCircuitOpen
	}

	res := s.post(ctx, endpoint, payload, r)

	if r.breaker != nil {
		if res.Success {
			r.breaker.RecordSuccess()
		} else {
			r.breaker.RecordFailure()
		}
	}
	if r.hook != nil {
		r.hook(res)
	}

	if res.Error != nil {
		return res, fmt.Errorf("%w: %w", ErrWebhookDeliveryFailed, res.Error)
	}
	return res, nil
}

func validate(endpoint string, payload []byte) error {
	if endpoint == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	case u.Host == "":
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	case len(payload) == 0:
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}
	return nil
}

// post performs the HTTP round trip. The returned result always carries
// the failure in Error when Success is false.
func (s *Sender) post(ctx context.Context, endpoint string, payload []byte, r *request) DeliveryResult {
	var res DeliveryResult
	fail := func(err error) DeliveryResult {
		res.Error = err
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err))
	}
	if err := r.applyHeaders(req.Header, payload); err != nil {
		return fail(err)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fail(err)
	}
	defer func() { _ = resp.Body.Close() }()

	res.StatusCode = resp.StatusCode
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		res.Success = true
		return res
	}
	return fail(statusError(resp.StatusCode, body))
}

func (r *request) applyHeaders(h http.Header, payload []byte) error {
	for k, v := range r.header {
		h[k] = v
	}
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", userAgent)

	sentAt := r.sentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	h.Set(HeaderTimestamp, strconv.FormatInt(sentAt.Unix(), 10))

	if r.secret == "" {
		return nil
	}
	sig, err := SignPayload(r.secret, payload)
	if err != nil {
		return err
	}
	h.Set(HeaderSignature, sig)
	return nil
}

// statusError keeps a short single-line excerpt of the response body.
func statusError(code int, body []byte) error {
	text := strings.Join(strings.Fields(string(body)), " ")
	if text == "" {
		return fmt.Errorf("endpoint returned status %d", code)
	}
	if len(text) > maxErrorSnippet {
		text = text[:maxErrorSnippet] + "..."
	}
	return fmt.Errorf("endpoint returned status %d: %s", code, text)
}
