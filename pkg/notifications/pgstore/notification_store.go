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

type NotificationStore struct {
	db DB
}

func NewNotificationStore(db DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationColumns = `id, user_id, channel, title, body, data, action_url, priority, category, status, read_at, sent_at, created_at`

func (s *NotificationStore) Create(ctx context.Context, n notifications.Notification) error {
	if n.ID == "" {
		return errors.New("notification ID is required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	data, err := marshalNullable(n.Data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		n.ID, n.UserID, n.Channel, n.Title, n.Body, data, n.ActionURL, n.Priority, n.Category,
		n.Status, n.ReadAt, n.SentAt, n.CreatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return fmt.Errorf("notification with ID %s already exists", n.ID)
	}
	return err
}

func (s *NotificationStore) Get(ctx context.Context, id string) (*notifications.Notification, error) {
	row := s.db.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if pg.IsNotFoundError(err) {
		return nil, notifications.ErrNotificationNotFound
	}
	return n, err
}

// UpdateStatus applies the transition in a single statement guarded by the
// set of statuses it may come from.
func (s *NotificationStore) UpdateStatus(ctx context.Context, id string, status notifications.Status, ts notifications.StatusTimestamps) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications
		SET status = $2,
		    sent_at = COALESCE($3, sent_at),
		    read_at = COALESCE($4, read_at)
		WHERE id = $1 AND status = ANY($5)`,
		id, status, ts.SentAt, ts.ReadAt, sourcesOf(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current notifications.Status
	err = s.db.QueryRow(ctx, `SELECT status FROM notifications WHERE id = $1`, id).Scan(&current)
	if pg.IsNotFoundError(err) {
		return notifications.ErrNotificationNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", notifications.ErrInvalidTransition, current, status)
}

// sourcesOf lists the statuses from which a move to status is legal.
func sourcesOf(status notifications.Status) []string {
	var from []string
	for _, s := range notifications.TransitionSources(status) {
		from = append(from, string(s))
	}
	return from
}

func scanNotification(row pgx.Row) (*notifications.Notification, error) {
	var (
		n    notifications.Notification
		data []byte
	)
	err := row.Scan(
		&n.ID, &n.UserID, &n.Channel, &n.Title, &n.Body, &data, &n.ActionURL,
		&n.Priority, &n.Category, &n.Status, &n.ReadAt, &n.SentAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalNullable(data, &n.Data); err != nil {
		return nil, fmt.Errorf("decode notification data: %w", err)
	}
	return &n, nil
}

func marshalNullable(v map[string]any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalNullable(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
