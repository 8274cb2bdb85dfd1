package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

type QueueStore struct {
	db DB
}

func NewQueueStore(db DB) *QueueStore {
	return &QueueStore{db: db}
}

const queueColumns = `id, notification_id, channel, user_id, payload, status, attempts, max_attempts, scheduled_for, last_attempt, last_error, created_at`

func (s *QueueStore) Create(ctx context.Context, e notifications.QueuedNotification) error {
	if e.ID == "" {
		return errors.New("queue entry ID is required")
	}
	if e.MaxAttempts <= 0 {
		return errors.New("max attempts must be positive")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode queue payload: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO notification_queue (`+queueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.NotificationID, e.Channel, e.UserID, payload, e.Status, e.Attempts,
		e.MaxAttempts, e.ScheduledFor, e.LastAttempt, e.LastError, e.CreatedAt,
	)
	switch {
	case pg.IsDuplicateKeyError(err):
		return fmt.Errorf("queue entry %s or an open entry for notification %s already exists", e.ID, e.NotificationID)
	case pg.IsForeignKeyViolationError(err):
		return fmt.Errorf("%w: %s", notifications.ErrNotificationNotFound, e.NotificationID)
	}
	return err
}

func (s *QueueStore) Get(ctx context.Context, id string) (*notifications.QueuedNotification, error) {
	row := s.db.QueryRow(ctx, `SELECT `+queueColumns+` FROM notification_queue WHERE id = $1`, id)
	return scanQueueEntry(row)
}

func (s *QueueStore) GetOpenByNotification(ctx context.Context, notificationID string) (*notifications.QueuedNotification, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+queueColumns+` FROM notification_queue
		WHERE notification_id = $1 AND status <> 'completed'`, notificationID)
	return scanQueueEntry(row)
}

// Claim is a single conditional UPDATE; when no row qualifies the entry is
// read back only to explain why.
func (s *QueueStore) Claim(ctx context.Context, id string, now, staleBefore time.Time) (*notifications.QueuedNotification, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE notification_queue
		SET status = 'processing', attempts = attempts + 1, last_attempt = $2
		WHERE id = $1 AND attempts < max_attempts
		  AND (status IN ('pending', 'failed') OR (status = 'processing' AND last_attempt <= $3))
		RETURNING `+queueColumns, id, now, staleBefore)
	e, err := scanQueueEntry(row)
	if !errors.Is(err, notifications.ErrQueueEntryNotFound) {
		return e, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := current.Claimable(staleBefore); err != nil {
		return nil, err
	}
	// The entry changed between the two statements; report it as taken.
	return nil, notifications.ErrRetryInProgress
}

func (s *QueueStore) Complete(ctx context.Context, id string) error {
	return s.finish(ctx, id, notifications.QueueStatusCompleted, "")
}

func (s *QueueStore) Fail(ctx context.Context, id string, errMsg string) error {
	return s.finish(ctx, id, notifications.QueueStatusFailed, errMsg)
}

func (s *QueueStore) finish(ctx context.Context, id string, status notifications.QueueStatus, errMsg string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE notification_queue
		SET status = $2, last_error = CASE WHEN $3::text = '' THEN last_error ELSE $3::text END
		WHERE id = $1 AND status = 'processing'`,
		id, status, errMsg,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("queue entry %s is not in processing state", id)
}

func (s *QueueStore) ListDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]notifications.QueuedNotification, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+queueColumns+` FROM notification_queue
		WHERE (status = 'pending' AND (scheduled_for IS NULL OR scheduled_for <= $1))
		   OR (status = 'failed' AND attempts < max_attempts)
		   OR (status = 'processing' AND last_attempt <= $3 AND attempts < max_attempts)
		ORDER BY created_at
		LIMIT $2`, now, lim, staleBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []notifications.QueuedNotification
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, *e)
	}
	return due, rows.Err()
}

func scanQueueEntry(row pgx.Row) (*notifications.QueuedNotification, error) {
	var (
		e       notifications.QueuedNotification
		payload []byte
	)
	err := row.Scan(
		&e.ID, &e.NotificationID, &e.Channel, &e.UserID, &payload, &e.Status, &e.Attempts,
		&e.MaxAttempts, &e.ScheduledFor, &e.LastAttempt, &e.LastError, &e.CreatedAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, notifications.ErrQueueEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalNullable(payload, &e.Payload); err != nil {
		return nil, fmt.Errorf("decode queue payload: %w", err)
	}
	return &e, nil
}
