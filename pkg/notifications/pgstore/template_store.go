package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

type TemplateStore struct {
	db DB
}

func NewTemplateStore(db DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func (s *TemplateStore) Get(ctx context.Context, id string) (*notifications.Template, error) {
	var t notifications.Template
	err := s.db.QueryRow(ctx, `
		SELECT id, organization_id, name, channel, subject, body, variables, is_active, created_by, created_at, updated_at
		FROM notification_templates
		WHERE id = $1 AND is_active`, id,
	).Scan(
		&t.ID, &t.OrganizationID, &t.Name, &t.Channel, &t.Subject, &t.Body,
		&t.Variables, &t.Active, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, notifications.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TemplateStore) Save(ctx context.Context, t notifications.Template) error {
	if t.ID == "" {
		return fmt.Errorf("%w: template id is required", notifications.ErrInvalidInput)
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_templates
			(id, organization_id, name, channel, subject, body, variables, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::text[], '{}'), $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			name = EXCLUDED.name,
			channel = EXCLUDED.channel,
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			variables = EXCLUDED.variables,
			is_active = EXCLUDED.is_active,
			created_by = EXCLUDED.created_by,
			updated_at = EXCLUDED.updated_at`,
		t.ID, t.OrganizationID, t.Name, t.Channel, t.Subject, t.Body, t.Variables,
		t.Active, t.CreatedBy, t.CreatedAt, now,
	)
	return err
}
