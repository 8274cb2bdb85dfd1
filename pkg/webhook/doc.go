// Package webhook delivers signed JSON payloads to HTTP endpoints.
//
// A Send is one POST: the payload bytes are sent unchanged, an
// X-Webhook-Timestamp header carries the unix time, and when a secret is
// configured X-Webhook-Signature carries "sha256=" plus the hex encoded
// HMAC-SHA256 of the body. Receivers check it with VerifySignature.
//
//	sender := webhook.NewSender()
//	res, err := sender.Send(ctx, endpoint, body,
//	    webhook.WithSignature(secret),
//	    webhook.WithTimestamp(ts),
//	    webhook.WithCircuitBreaker(breakers.For(endpoint)),
//	)
//
// Retries are left to the caller; the BackoffStrategy implementations in
// this package compute the delay between them.
package webhook
