package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// seedTemplates stores every template declared in path. An empty path is a no-op.
func seedTemplates(ctx context.Context, store notifications.TemplateStore, path string, log *slog.Logger) error {
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open templates file: %w", err)
	}
	defer f.Close()

	templates, err := notifications.LoadTemplates(f)
	if err != nil {
		return err
	}
	for _, tpl := range templates {
		if err := store.Save(ctx, tpl); err != nil {
			return fmt.Errorf("failed to save template %s: %w", tpl.ID, err)
		}
	}

	log.LogAttrs(ctx, slog.LevelInfo, "templates seeded",
		slog.String("file", path),
		slog.Int("count", len(templates)),
	)
	return nil
}
