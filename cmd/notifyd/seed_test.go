package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func TestSeedTemplates(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`templates:
  - id: welcome
    name: Welcome
    channel: email
    subject: "Hi {{name}}"
    body: "Welcome aboard, {{name}}!"
    active: true
`), 0o600))

	store := notifications.NewMemoryTemplateStore()
	require.NoError(t, seedTemplates(ctx, store, path, log))

	tpl, err := store.Get(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Hi Ana", tpl.RenderTitle(map[string]string{"name": "Ana"}))

	assert.NoError(t, seedTemplates(ctx, store, "", log))
	assert.Error(t, seedTemplates(ctx, store, filepath.Join(t.TempDir(), "missing.yaml"), log))
}
