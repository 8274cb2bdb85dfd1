package webhook

import "errors"

// Delivery errors carry the endpoint's status or the transport error
// alongside the sentinel.
var (
	ErrWebhookDeliveryFailed = errors.New("webhook delivery failed")
	ErrTimeout               = errors.New("webhook endpoint did not answer in time")
	ErrCircuitOpen           = errors.New("webhook circuit breaker is open")

	ErrInvalidConfiguration = errors.New("invalid webhook configuration")
	ErrInvalidURL           = errors.New("invalid webhook URL")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrSignatureMismatch    = errors.New("webhook signature does not match payload")
)

// IsCircuitOpen reports whether the request was refused without being sent.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
