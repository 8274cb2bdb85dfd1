package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"

	signaturePrefix = "sha256="
)

// SignPayload returns the signature header value for payload:
// "sha256=" followed by the hex encoded HMAC-SHA256 of the exact bytes.
func SignPayload(secret string, payload []byte) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}
	return signaturePrefix + hexMAC(secret, payload), nil
}

// VerifySignature checks a signature header value produced by SignPayload.
// The comparison is constant-time.
func VerifySignature(secret string, payload []byte, signature string) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	got, found := strings.CutPrefix(signature, signaturePrefix)
	if !found || got == "" {
		return fmt.Errorf("%w: malformed signature", ErrSignatureMismatch)
	}
	if !hmac.Equal([]byte(hexMAC(secret, payload)), []byte(got)) {
		return ErrSignatureMismatch
	}
	return nil
}

func hexMAC(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
