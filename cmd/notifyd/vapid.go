package main

import (
	"fmt"
	"io"

	"github.com/dmitrymomot/notifykit/pkg/push"
)

// writeVAPIDKeys prints a fresh key pair in .env form.
func writeVAPIDKeys(w io.Writer) error {
	private, public, err := push.GenerateKeys()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "VAPID_PRIVATE_KEY=%s\nVAPID_PUBLIC_KEY=%s\n", private, public)
	return err
}
