package webhook

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request when WithTimeout is not given.
const DefaultTimeout = 10 * time.Second

// DeliveryResult describes one request to an endpoint.
type DeliveryResult struct {
	Success    bool
	StatusCode int
	Duration   time.Duration
	Error      error
}

// DeliveryHook observes every request that reached the transport.
type DeliveryHook func(result DeliveryResult)

// SendOption configures a single Send call.
type SendOption func(*request)

// request collects per-call settings.
type request struct {
	timeout time.Duration
	header  http.Header
	secret  string
	sentAt  time.Time
	breaker *CircuitBreaker
	hook    DeliveryHook
}

func newRequest(opts []SendOption) *request {
	r := &request{timeout: DefaultTimeout, header: make(http.Header)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) SendOption {
	return func(r *request) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithHeader sets an extra header. Content-Type, User-Agent and the
// X-Webhook-* headers cannot be overridden.
func WithHeader(key, value string) SendOption {
	return func(r *request) {
		if key != "" && value != "" {
			r.header.Set(key, value)
		}
	}
}

// WithSignature signs the raw payload with secret.
// An empty secret leaves the request unsigned.
func WithSignature(secret string) SendOption {
	return func(r *request) { r.secret = secret }
}

// WithTimestamp fixes the X-Webhook-Timestamp value, normally to the
// timestamp already embedded in the payload.
func WithTimestamp(ts time.Time) SendOption {
	return func(r *request) { r.sentAt = ts }
}

// WithCircuitBreaker guards the request with cb. Share one breaker per
// endpoint so failures accumulate.
func WithCircuitBreaker(cb *CircuitBreaker) SendOption {
	return func(r *request) { r.breaker = cb }
}

// WithOnDelivery registers a hook called after the request completes.
// It is not called when the breaker short-circuits the send.
func WithOnDelivery(hook DeliveryHook) SendOption {
	return func(r *request) { r.hook = hook }
}
