package notifications

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryNotificationStore is an in-memory NotificationStore.
// Suitable for development and testing.
type MemoryNotificationStore struct {
	mu            sync.RWMutex
	notifications map[string]Notification
}

// NewMemoryNotificationStore creates an empty in-memory notification store.
func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{notifications: make(map[string]Notification)}
}

func (s *MemoryNotificationStore) Create(ctx context.Context, notif Notification) error {
	if notif.ID == "" {
		return errors.New("notification ID is required")
	}
	if notif.UserID == "" {
		return errors.New("user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notifications[notif.ID]; exists {
		return fmt.Errorf("notification with ID %s already exists", notif.ID)
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}
	notif.Data = maps.Clone(notif.Data)
	s.notifications[notif.ID] = notif
	return nil
}

func (s *MemoryNotificationStore) Get(ctx context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	n.Data = maps.Clone(n.Data)
	return &n, nil
}

func (s *MemoryNotificationStore) UpdateStatus(ctx context.Context, id string, status Status, ts StatusTimestamps) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	if err := CheckTransition(n.Status, status); err != nil {
		return err
	}

	n.Status = status
	if ts.SentAt != nil {
		n.SentAt = ts.SentAt
	}
	if ts.ReadAt != nil {
		n.ReadAt = ts.ReadAt
	}
	s.notifications[id] = n
	return nil
}

// MemoryPreferenceStore is an in-memory PreferenceStore.
type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]Preferences
}

// NewMemoryPreferenceStore creates an empty in-memory preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string]Preferences)}
}

func (s *MemoryPreferenceStore) Get(ctx context.Context, userID string) (*Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[userID]
	if !ok {
		return nil, ErrPreferencesNotFound
	}
	p = p.Clone()
	return &p, nil
}

func (s *MemoryPreferenceStore) Upsert(ctx context.Context, userID string, patch PreferencesPatch) (*Preferences, error) {
	if userID == "" {
		return nil, invalidInput("user id is required")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.prefs[userID]
	if !ok {
		base = DefaultPreferences(userID)
	}
	next := base.Apply(patch)
	next.UpdatedAt = time.Now()
	s.prefs[userID] = next

	out := next.Clone()
	return &out, nil
}

// MemoryTemplateStore is an in-memory TemplateStore.
type MemoryTemplateStore struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewMemoryTemplateStore creates an in-memory template store seeded with templates.
func NewMemoryTemplateStore(templates ...Template) *MemoryTemplateStore {
	s := &MemoryTemplateStore{templates: make(map[string]Template, len(templates))}
	for _, t := range templates {
		s.templates[t.ID] = t
	}
	return s
}

func (s *MemoryTemplateStore) Get(ctx context.Context, id string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok || !t.Active {
		return nil, ErrTemplateNotFound
	}
	t.Variables = slices.Clone(t.Variables)
	return &t, nil
}

func (s *MemoryTemplateStore) Save(ctx context.Context, tpl Template) error {
	if tpl.ID == "" {
		return invalidInput("template id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.templates[tpl.ID]; ok {
		tpl.CreatedAt = existing.CreatedAt
	} else if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now
	s.templates[tpl.ID] = tpl
	return nil
}

// MemoryQueueStore is an in-memory QueueStore. Claim is atomic with respect
// to concurrent callers on the same entry.
type MemoryQueueStore struct {
	mu      sync.Mutex
	entries map[string]*QueuedNotification
}

// NewMemoryQueueStore creates an empty in-memory queue store.
func NewMemoryQueueStore() *MemoryQueueStore {
	return &MemoryQueueStore{entries: make(map[string]*QueuedNotification)}
}

func (s *MemoryQueueStore) Create(ctx context.Context, entry QueuedNotification) error {
	if entry.ID == "" {
		return errors.New("queue entry ID is required")
	}
	if entry.MaxAttempts <= 0 {
		return errors.New("max attempts must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ID]; exists {
		return fmt.Errorf("queue entry with ID %s already exists", entry.ID)
	}
	for _, e := range s.entries {
		if e.NotificationID == entry.NotificationID && e.Status != QueueStatusCompleted {
			return fmt.Errorf("notification %s already has an open queue entry %s", entry.NotificationID, e.ID)
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.Payload.Data = maps.Clone(entry.Payload.Data)
	s.entries[entry.ID] = &entry
	return nil
}

func (s *MemoryQueueStore) Get(ctx context.Context, id string) (*QueuedNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrQueueEntryNotFound
	}
	return e.clone(), nil
}

func (s *MemoryQueueStore) GetOpenByNotification(ctx context.Context, notificationID string) (*QueuedNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.NotificationID == notificationID && e.Status != QueueStatusCompleted {
			return e.clone(), nil
		}
	}
	return nil, ErrQueueEntryNotFound
}

func (s *MemoryQueueStore) Claim(ctx context.Context, id string, now, staleBefore time.Time) (*QueuedNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrQueueEntryNotFound
	}
	if err := e.Claimable(staleBefore); err != nil {
		return nil, err
	}

	e.Status = QueueStatusProcessing
	e.Attempts++
	e.LastAttempt = &now
	return e.clone(), nil
}

func (s *MemoryQueueStore) Complete(ctx context.Context, id string) error {
	return s.finish(id, QueueStatusCompleted, "")
}

func (s *MemoryQueueStore) Fail(ctx context.Context, id string, errMsg string) error {
	return s.finish(id, QueueStatusFailed, errMsg)
}

func (s *MemoryQueueStore) finish(id string, status QueueStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return ErrQueueEntryNotFound
	}
	if err := queueMachine.Check(e.Status, status); err != nil {
		return fmt.Errorf("queue entry %s is not in processing state: %w", id, err)
	}
	e.Status = status
	if errMsg != "" {
		e.LastError = errMsg
	}
	return nil
}

func (s *MemoryQueueStore) ListDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]QueuedNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []QueuedNotification
	for _, e := range s.entries {
		switch e.Status {
		case QueueStatusPending:
			if e.ScheduledFor != nil && e.ScheduledFor.After(now) {
				continue
			}
		case QueueStatusFailed:
			if e.Exhausted() {
				continue
			}
		case QueueStatusProcessing:
			if !e.Stale(staleBefore) || e.Exhausted() {
				continue
			}
		default:
			continue
		}
		due = append(due, *e.clone())
	}

	slices.SortFunc(due, func(a, b QueuedNotification) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (e *QueuedNotification) clone() *QueuedNotification {
	c := *e
	c.Payload.Data = maps.Clone(e.Payload.Data)
	return &c
}
