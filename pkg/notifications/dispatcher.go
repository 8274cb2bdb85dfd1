package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/validator"
	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

const (
	DefaultSendTimeout     = 10 * time.Second
	DefaultMaxAttempts     = 3
	DefaultBulkConcurrency = 8
	DefaultProcessingLease = 5 * time.Minute
)

// Backoff computes the wait before the next attempt of a failed queue entry.
// webhook.BackoffStrategy implementations satisfy it.
type Backoff interface {
	NextInterval(attempt int) time.Duration
}

// Request carries the fields of a notification to dispatch.
type Request struct {
	UserID    string         `json:"user_id"`
	Channel   Channel        `json:"channel"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	ActionURL string         `json:"action_url,omitempty"`
	Priority  Priority       `json:"priority,omitempty"`
	Category  string         `json:"category,omitempty"`
}

// Validate rejects structurally invalid requests. Every failed field is
// reported; the error wraps ErrInvalidInput.
func (r Request) Validate() error {
	return validate(
		validator.RequiredString("user_id", r.UserID),
		validator.RequiredComparable("channel", r.Channel),
		validator.When(r.Channel != "", validator.InList("channel", r.Channel, Channels)),
		validator.Custom("body", "title or body is required", func() bool {
			return r.Title != "" || r.Body != ""
		}),
		validator.When(r.Priority != "", validator.InList("priority", r.Priority, Priorities)),
	)
}

// OutcomeState is the definite result of a dispatch.
type OutcomeState string

const (
	OutcomeRejected OutcomeState = "rejected"
	OutcomeDeferred OutcomeState = "deferred"
	OutcomeSent     OutcomeState = "sent"
	OutcomeFailed   OutcomeState = "failed"
)

// Outcome describes what happened to a dispatched notification.
type Outcome struct {
	State        OutcomeState  `json:"state"`
	Notification *Notification `json:"notification,omitempty"`
	Result       *Result       `json:"result,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	QueueID      string        `json:"queue_id,omitempty"`
	ScheduledFor *time.Time    `json:"scheduled_for,omitempty"`
}

// BulkResult summarizes a bulk dispatch. Outcomes follow the request order;
// an entry is nil when its request failed with an error.
type BulkResult struct {
	Total    int        `json:"total"`
	Sent     int        `json:"sent"`
	Failed   int        `json:"failed"`
	Deferred int        `json:"deferred"`
	Rejected int        `json:"rejected"`
	Outcomes []*Outcome `json:"outcomes"`
	Errors   []string   `json:"errors,omitempty"`
}

// TemplateRequest dispatches a rendered template to a user.
type TemplateRequest struct {
	TemplateID string            `json:"template_id"`
	UserID     string            `json:"user_id"`
	Variables  map[string]string `json:"variables,omitempty"`
	Channel    Channel           `json:"channel,omitempty"`
	Data       map[string]any    `json:"data,omitempty"`
	ActionURL  string            `json:"action_url,omitempty"`
	Priority   Priority          `json:"priority,omitempty"`
	Category   string            `json:"category,omitempty"`
}

// Validate checks the template reference and the optional overrides.
func (r TemplateRequest) Validate() error {
	return validate(
		validator.RequiredString("template_id", r.TemplateID),
		validator.RequiredString("user_id", r.UserID),
		validator.When(r.Channel != "", validator.InList("channel", r.Channel, Channels)),
		validator.When(r.Priority != "", validator.InList("priority", r.Priority, Priorities)),
	)
}

// Dispatcher routes notifications through the preference gate to the channel
// senders and owns every notification and queue state transition.
type Dispatcher struct {
	notifications NotificationStore
	queue         QueueStore
	templates     TemplateStore
	gate          *Gate
	senders       Senders

	logger          *slog.Logger
	now             func() time.Time
	newID           func() string
	newQueueID      func() string
	sendTimeout     time.Duration
	processingLease time.Duration
	maxAttempts     int
	bulkConcurrency int
	backoff         Backoff
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for the Dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithSendTimeout bounds every single delivery attempt.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// WithProcessingLease sets how long a claimed queue entry may stay processing
// before another worker may reclaim it. It should exceed the send timeout.
func WithProcessingLease(lease time.Duration) Option {
	return func(d *Dispatcher) {
		if lease > 0 {
			d.processingLease = lease
		}
	}
}

// WithMaxAttempts sets the attempt ceiling of new queue entries.
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithBulkConcurrency limits parallel dispatches in DispatchBulk and RetryDue.
func WithBulkConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.bulkConcurrency = n
		}
	}
}

// WithBackoff sets the delay policy applied to failed entries by RetryDue.
func WithBackoff(b Backoff) Option {
	return func(d *Dispatcher) {
		if b != nil {
			d.backoff = b
		}
	}
}

// WithClock overrides the time source. The gate built by NewDispatcher
// shares it.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithIDGenerator overrides notification and queue id generation.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newID = fn
			d.newQueueID = fn
		}
	}
}

// Stores groups the persistence collaborators of a Dispatcher.
type Stores struct {
	Preferences   PreferenceStore
	Notifications NotificationStore
	Templates     TemplateStore
	Queue         QueueStore
}

// NewMemoryStores returns in-memory implementations of every store.
func NewMemoryStores() Stores {
	return Stores{
		Preferences:   NewMemoryPreferenceStore(),
		Notifications: NewMemoryNotificationStore(),
		Templates:     NewMemoryTemplateStore(),
		Queue:         NewMemoryQueueStore(),
	}
}

// NewDispatcher creates a dispatcher over the given stores and senders.
func NewDispatcher(stores Stores, senders Senders, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		notifications:   stores.Notifications,
		queue:           stores.Queue,
		templates:       stores.Templates,
		senders:         senders,
		logger:          slog.Default(),
		now:             time.Now,
		newID:           func() string { return uuid.New().String() },
		newQueueID:      func() string { return ulid.Make().String() },
		sendTimeout:     DefaultSendTimeout,
		processingLease: DefaultProcessingLease,
		maxAttempts:     DefaultMaxAttempts,
		bulkConcurrency: DefaultBulkConcurrency,
		backoff:         webhook.DefaultBackoffStrategy(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.gate = NewGate(stores.Preferences, WithGateClock(d.now))
	return d
}

// Dispatch runs a single notification through the gate and, when allowed,
// its channel sender. Only invalid input and store failures are returned as
// errors; delivery failures are reported in the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	decision, err := d.gate.DecideFor(ctx, req.UserID, req.Channel, req.Category)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load preferences: %w", err)
	}

	if decision.Action == ActionReject {
		d.logger.LogAttrs(ctx, slog.LevelInfo, "notification rejected by preferences",
			logger.UserID(req.UserID),
			logger.Channel(string(req.Channel)),
			slog.String("reason", decision.Reason),
		)
		return Outcome{State: OutcomeRejected, Reason: decision.Reason}, nil
	}

	notif := d.newNotification(req)
	if err := d.notifications.Create(ctx, notif); err != nil {
		return Outcome{}, fmt.Errorf("failed to store notification: %w", err)
	}

	if decision.Action == ActionDefer {
		return d.deferDelivery(ctx, notif, decision)
	}

	return d.sendNow(ctx, notif)
}

func (d *Dispatcher) newNotification(req Request) Notification {
	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	return Notification{
		ID:        d.newID(),
		UserID:    req.UserID,
		Channel:   req.Channel,
		Title:     req.Title,
		Body:      req.Body,
		Data:      maps.Clone(req.Data),
		ActionURL: req.ActionURL,
		Priority:  priority,
		Category:  req.Category,
		Status:    StatusPending,
		CreatedAt: d.now(),
	}
}

func (d *Dispatcher) deferDelivery(ctx context.Context, notif Notification, decision Decision) (Outcome, error) {
	until := decision.Until
	entry := d.newQueueEntry(notif, &until)
	if err := d.queue.Create(ctx, entry); err != nil {
		return Outcome{}, fmt.Errorf("failed to enqueue deferred notification: %w", err)
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "notification deferred",
		logger.NotificationID(notif.ID),
		logger.QueueID(entry.ID),
		logger.UserID(notif.UserID),
		logger.Channel(string(notif.Channel)),
		slog.Time("scheduled_for", until),
	)

	return Outcome{
		State:        OutcomeDeferred,
		Notification: &notif,
		Reason:       decision.Reason,
		QueueID:      entry.ID,
		ScheduledFor: &until,
	}, nil
}

func (d *Dispatcher) newQueueEntry(notif Notification, scheduledFor *time.Time) QueuedNotification {
	return QueuedNotification{
		ID:             d.newQueueID(),
		NotificationID: notif.ID,
		Channel:        notif.Channel,
		UserID:         notif.UserID,
		Payload:        PayloadOf(notif),
		Status:         QueueStatusPending,
		MaxAttempts:    d.maxAttempts,
		ScheduledFor:   scheduledFor,
		CreatedAt:      d.now(),
	}
}

func (d *Dispatcher) sendNow(ctx context.Context, notif Notification) (Outcome, error) {
	res := d.senders.Send(ctx, notif, d.sendTimeout)

	if !res.Success {
		if err := d.notifications.UpdateStatus(ctx, notif.ID, StatusFailed, StatusTimestamps{}); err != nil {
			d.logPartialState(ctx, "delivery failed but notification not marked failed", notif, "", err)
			return Outcome{}, fmt.Errorf("failed to mark notification failed: %w", err)
		}
		notif.Status = StatusFailed

		d.logger.LogAttrs(ctx, slog.LevelWarn, "notification delivery failed",
			logger.NotificationID(notif.ID),
			logger.UserID(notif.UserID),
			logger.Channel(string(notif.Channel)),
			slog.String("reason", res.Error),
		)
		return Outcome{State: OutcomeFailed, Notification: &notif, Result: &res, Reason: res.Error}, nil
	}

	sentAt := d.now()
	if err := d.notifications.UpdateStatus(ctx, notif.ID, StatusDelivered, StatusTimestamps{SentAt: &sentAt}); err != nil {
		d.logPartialState(ctx, "notification sent but not marked delivered", notif, "", err)
		return Outcome{}, fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	notif.Status = StatusDelivered
	notif.SentAt = &sentAt

	d.logger.LogAttrs(ctx, slog.LevelDebug, "notification delivered",
		logger.NotificationID(notif.ID),
		logger.UserID(notif.UserID),
		logger.Channel(string(notif.Channel)),
	)
	return Outcome{State: OutcomeSent, Notification: &notif, Result: &res}, nil
}

// logPartialState reports a store write that failed after a send attempt,
// leaving the stored records out of step with the delivery. queueID is empty
// for direct sends.
func (d *Dispatcher) logPartialState(ctx context.Context, msg string, notif Notification, queueID string, err error) {
	d.logger.LogAttrs(ctx, slog.LevelError, msg,
		logger.NotificationID(notif.ID),
		logger.QueueID(queueID),
		logger.UserID(notif.UserID),
		logger.Channel(string(notif.Channel)),
		logger.Error(err),
	)
}

// DispatchBulk dispatches every request independently and concurrently.
// A failing item never aborts the others; errors are counted as failures.
func (d *Dispatcher) DispatchBulk(ctx context.Context, reqs []Request) BulkResult {
	outcomes := make([]*Outcome, len(reqs))
	errs := make([]error, len(reqs))

	// Items report their own errors, so the group never cancels.
	var g errgroup.Group
	g.SetLimit(d.bulkConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			out, err := d.Dispatch(ctx, req)
			if err != nil {
				errs[i] = err
				return nil
			}
			outcomes[i] = &out
			return nil
		})
	}
	_ = g.Wait()

	res := BulkResult{Total: len(reqs), Outcomes: outcomes}
	for i, out := range outcomes {
		if errs[i] != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("item %d: %v", i, errs[i]))
			continue
		}
		switch out.State {
		case OutcomeSent:
			res.Sent++
		case OutcomeDeferred:
			res.Deferred++
		case OutcomeRejected:
			res.Rejected++
		default:
			res.Failed++
		}
	}

	if res.Failed > 0 {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "bulk dispatch finished with failures",
			slog.Int("total", res.Total),
			slog.Int("sent", res.Sent),
			slog.Int("failed", res.Failed),
			logger.Errors(errs...),
		)
	}
	return res
}

// DispatchFromTemplate renders an active template and dispatches the result.
// The template's channel is used unless the request overrides it.
func (d *Dispatcher) DispatchFromTemplate(ctx context.Context, req TemplateRequest) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	tpl, err := d.templates.Get(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return Outcome{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, req.TemplateID)
		}
		return Outcome{}, fmt.Errorf("failed to load template: %w", err)
	}

	channel := tpl.Channel
	if req.Channel != "" {
		channel = req.Channel
	}

	return d.Dispatch(ctx, Request{
		UserID:    req.UserID,
		Channel:   channel,
		Title:     tpl.RenderTitle(req.Variables),
		Body:      tpl.RenderBody(req.Variables),
		Data:      req.Data,
		ActionURL: req.ActionURL,
		Priority:  req.Priority,
		Category:  req.Category,
	})
}

// MarkRead records that the user has seen a sent or delivered notification.
func (d *Dispatcher) MarkRead(ctx context.Context, id string) (*Notification, error) {
	if id == "" {
		return nil, invalidInput("notification id is required")
	}

	readAt := d.now()
	if err := d.notifications.UpdateStatus(ctx, id, StatusRead, StatusTimestamps{ReadAt: &readAt}); err != nil {
		return nil, err
	}
	return d.notifications.Get(ctx, id)
}
