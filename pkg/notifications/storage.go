package notifications

import (
	"context"
	"time"
)

// PreferenceStore persists per-user delivery preferences.
type PreferenceStore interface {
	// Get returns ErrPreferencesNotFound when the user has no record.
	Get(ctx context.Context, userID string) (*Preferences, error)

	// Upsert merges the patch onto the stored record, or onto the default
	// policy when none exists, and returns the result.
	Upsert(ctx context.Context, userID string, patch PreferencesPatch) (*Preferences, error)
}

// NotificationStore persists notifications.
type NotificationStore interface {
	// Create stores a new notification. ID and CreatedAt must be set.
	Create(ctx context.Context, notif Notification) error

	// Get returns ErrNotificationNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Notification, error)

	// UpdateStatus moves a notification to status, rejecting illegal moves
	// with ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, status Status, ts StatusTimestamps) error
}

// TemplateStore provides templates for send-from-template flows.
type TemplateStore interface {
	// Get returns active templates only; anything else is ErrTemplateNotFound.
	Get(ctx context.Context, id string) (*Template, error)

	// Save creates or replaces a template.
	Save(ctx context.Context, tpl Template) error
}

// QueueStore persists deferred and retryable deliveries.
type QueueStore interface {
	// Create stores a new entry. ID and CreatedAt must be set.
	Create(ctx context.Context, entry QueuedNotification) error

	// Get returns ErrQueueEntryNotFound for unknown ids.
	Get(ctx context.Context, id string) (*QueuedNotification, error)

	// GetOpenByNotification returns the entry for a notification that is not
	// completed yet, or ErrQueueEntryNotFound.
	GetOpenByNotification(ctx context.Context, notificationID string) (*QueuedNotification, error)

	// Claim atomically marks the entry processing, increments its attempts
	// and stamps the last attempt. A processing entry whose last attempt is
	// at or before staleBefore is reclaimed. It fails without mutation with
	// ErrQueueEntryNotFound, ErrRetryInProgress, ErrAlreadyCompleted or
	// ErrMaxAttemptsReached.
	Claim(ctx context.Context, id string, now, staleBefore time.Time) (*QueuedNotification, error)

	// Complete marks a processing entry completed.
	Complete(ctx context.Context, id string) error

	// Fail marks a processing entry failed and records the error.
	Fail(ctx context.Context, id string, errMsg string) error

	// ListDue returns pending entries whose scheduled time has passed, and
	// failed or stale processing entries that still have attempts left,
	// oldest first.
	ListDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]QueuedNotification, error)
}
