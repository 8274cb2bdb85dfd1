// Package templates renders the HTML bodies of notification emails.
package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Render renders a templ component to a string.
func Render(ctx context.Context, tpl templ.Component) (string, error) {
	var sb strings.Builder
	if err := tpl.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// NotificationEmail is the content of a notification email.
type NotificationEmail struct {
	Title     string
	Body      string
	ActionURL string
}

// Notification is the HTML layout used for notification emails. Body lines
// become paragraphs; an action URL becomes a button.
func Notification(n NotificationEmail) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
		sb.WriteString(templ.EscapeString(n.Title))
		sb.WriteString(`</title></head><body style="font-family:sans-serif;line-height:1.5">`)
		if n.Title != "" {
			sb.WriteString(`<h1 style="font-size:20px">`)
			sb.WriteString(templ.EscapeString(n.Title))
			sb.WriteString(`</h1>`)
		}
		for _, line := range strings.Split(n.Body, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			sb.WriteString(`<p>`)
			sb.WriteString(templ.EscapeString(line))
			sb.WriteString(`</p>`)
		}
		if n.ActionURL != "" {
			sb.WriteString(`<p><a href="`)
			sb.WriteString(templ.EscapeString(string(templ.URL(n.ActionURL))))
			sb.WriteString(`" style="display:inline-block;padding:10px 16px;background:#2563eb;color:#fff;text-decoration:none;border-radius:4px">Open</a></p>`)
		}
		sb.WriteString(`</body></html>`)

		_, err := io.WriteString(w, sb.String())
		return err
	})
}
