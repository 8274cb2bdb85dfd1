package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

type PreferenceStore struct {
	db DB
}

func NewPreferenceStore(db DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

const preferenceColumns = `user_id, enabled, channels, categories, quiet_hours, digest, updated_at`

func (s *PreferenceStore) Get(ctx context.Context, userID string) (*notifications.Preferences, error) {
	row := s.db.QueryRow(ctx, `SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = $1`, userID)
	p, err := scanPreferences(row)
	if pg.IsNotFoundError(err) {
		return nil, notifications.ErrPreferencesNotFound
	}
	return p, err
}

// Upsert merges the patch under a row lock so concurrent partial updates
// do not overwrite each other.
func (s *PreferenceStore) Upsert(ctx context.Context, userID string, patch notifications.PreferencesPatch) (*notifications.Preferences, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", notifications.ErrInvalidInput)
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var out notifications.Preferences
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		base := notifications.DefaultPreferences(userID)
		row := tx.QueryRow(ctx, `SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = $1 FOR UPDATE`, userID)
		stored, err := scanPreferences(row)
		switch {
		case err == nil:
			base = *stored
		case !pg.IsNotFoundError(err):
			return err
		}

		out = base.Apply(patch)
		out.UpdatedAt = time.Now()

		channels, err := json.Marshal(out.Channels)
		if err != nil {
			return err
		}
		categories, err := json.Marshal(out.Categories)
		if err != nil {
			return err
		}
		quietHours, err := marshalOptional(out.QuietHours)
		if err != nil {
			return err
		}
		digest, err := marshalOptional(out.Digest)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO notification_preferences (`+preferenceColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id) DO UPDATE SET
				enabled = EXCLUDED.enabled,
				channels = EXCLUDED.channels,
				categories = EXCLUDED.categories,
				quiet_hours = EXCLUDED.quiet_hours,
				digest = EXCLUDED.digest,
				updated_at = EXCLUDED.updated_at`,
			userID, out.Enabled, channels, categories, quietHours, digest, out.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func scanPreferences(row pgx.Row) (*notifications.Preferences, error) {
	var p notifications.Preferences
	var channels, categories, quiet, digest []byte
	if err := row.Scan(&p.UserID, &p.Enabled, &channels, &categories, &quiet, &digest, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(channels, &p.Channels); err != nil {
		return nil, fmt.Errorf("decode channel preferences: %w", err)
	}
	if err := unmarshalNullable(categories, &p.Categories); err != nil {
		return nil, fmt.Errorf("decode category preferences: %w", err)
	}
	if err := unmarshalNullable(quiet, &p.QuietHours); err != nil {
		return nil, fmt.Errorf("decode quiet hours: %w", err)
	}
	if err := unmarshalNullable(digest, &p.Digest); err != nil {
		return nil, fmt.Errorf("decode digest: %w", err)
	}
	return &p, nil
}

func marshalOptional[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
