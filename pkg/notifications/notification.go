package notifications

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/statemachine"
)

// Channel is a delivery transport.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelPush    Channel = "push"
	ChannelSMS     Channel = "sms"
	ChannelInApp   Channel = "in_app"
	ChannelWebhook Channel = "webhook"
)

// Channels lists every supported channel in a stable order.
var Channels = []Channel{ChannelEmail, ChannelPush, ChannelSMS, ChannelInApp, ChannelWebhook}

// Valid reports whether c is one of the supported channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelPush, ChannelSMS, ChannelInApp, ChannelWebhook:
		return true
	}
	return false
}

// Priority is informational only and never changes delivery mechanics.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
// Priorities lists every notification priority.
var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status represents the delivery state of a notification.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusRead      Status = "read"
)

// Statuses lists every notification status.
var Statuses = []Status{StatusPending, StatusSent, StatusDelivered, StatusFailed, StatusRead}

// statusMachine holds the only legal status moves. failed -> sent|delivered
// is reachable through the retry path exclusively.
var statusMachine = statemachine.NewBuilder[Status]().
	From(StatusPending).To(StatusSent, StatusDelivered, StatusFailed).
	From(StatusSent).To(StatusDelivered, StatusRead, StatusFailed).
	From(StatusDelivered).To(StatusRead).
	From(StatusFailed).To(StatusSent, StatusDelivered).
	Build()

// CanTransition reports whether a notification may move from one status to another.
func CanTransition(from, to Status) bool {
	return statusMachine.Can(from, to)
}

// CheckTransition wraps ErrInvalidTransition when the move is not allowed.
func CheckTransition(from, to Status) error {
	if err := statusMachine.Check(from, to); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	return nil
}

// TransitionSources lists the statuses from which to is reachable.
func TransitionSources(to Status) []Status {
	return statusMachine.Sources(to)
}

// Data keys understood by the channel senders.
const (
	DataEmail            = "email"
	DataPhone            = "phone"
	DataPhoneNumber      = "phoneNumber"
	DataWebhookURL       = "webhookUrl"
	DataWebhookURLSnake  = "webhook_url"
	DataPushSubscription = "pushSubscription"
)

// Notification is a unit of information to deliver to a user.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Channel   Channel        `json:"channel"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	ActionURL string         `json:"action_url,omitempty"`
	Priority  Priority       `json:"priority"`
	Category  string         `json:"category,omitempty"`
	Status    Status         `json:"status"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// DataString returns the first non-empty string value found under keys.
func (n Notification) DataString(keys ...string) string {
	for _, k := range keys {
		if v, ok := n.Data[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// StatusTimestamps carries the optional timestamps written with a status change.
type StatusTimestamps struct {
	SentAt *time.Time
	ReadAt *time.Time
}

// Payload is everything needed to resend a queued notification without
// re-deriving it from the originating record.
type Payload struct {
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	ActionURL string         `json:"action_url,omitempty"`
	Priority  Priority       `json:"priority"`
	Data      map[string]any `json:"data,omitempty"`
}

// PayloadOf captures the resend payload of a notification.
func PayloadOf(n Notification) Payload {
	return Payload{
		Title:     n.Title,
		Body:      n.Body,
		ActionURL: n.ActionURL,
		Priority:  n.Priority,
		Data:      n.Data,
	}
}

// QueueStatus represents the state of a queue entry.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// queueMachine holds the queue entry lifecycle. processing -> processing is
// the reclaim of a stale entry.
var queueMachine = statemachine.NewBuilder[QueueStatus]().
	From(QueueStatusPending).To(QueueStatusProcessing).
	From(QueueStatusFailed).To(QueueStatusProcessing).
	From(QueueStatusProcessing).To(QueueStatusCompleted, QueueStatusFailed, QueueStatusProcessing).
	Build()

// QueuedNotification is a deferred or retryable delivery attempt.
type QueuedNotification struct {
	ID             string      `json:"id"`
	NotificationID string      `json:"notification_id"`
	Channel        Channel     `json:"channel"`
	UserID         string      `json:"user_id"`
	Payload        Payload     `json:"payload"`
	Status         QueueStatus `json:"status"`
	Attempts       int         `json:"attempts"`
	MaxAttempts    int         `json:"max_attempts"`
	ScheduledFor   *time.Time  `json:"scheduled_for,omitempty"`
	LastAttempt    *time.Time  `json:"last_attempt,omitempty"`
	LastError      string      `json:"last_error,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Exhausted reports whether no further attempts are allowed.
func (q QueuedNotification) Exhausted() bool {
	return q.Attempts >= q.MaxAttempts
}

// Stale reports whether a processing entry was claimed at or before
// staleBefore, which means its worker is presumed dead.
func (q QueuedNotification) Stale(staleBefore time.Time) bool {
	return q.Status == QueueStatusProcessing &&
		q.LastAttempt != nil &&
		!q.LastAttempt.After(staleBefore)
}

// Claimable reports why the entry cannot be claimed for another attempt,
// or nil when it can. Stale processing entries are claimable.
func (q QueuedNotification) Claimable(staleBefore time.Time) error {
	switch {
	case q.Status == QueueStatusCompleted:
		return ErrAlreadyCompleted
	case q.Status == QueueStatusProcessing && !q.Stale(staleBefore):
		return ErrRetryInProgress
	case q.Exhausted():
		return ErrMaxAttemptsReached
	}
	return nil
}

// Notification rebuilds the notification to send from the queue entry.
func (q QueuedNotification) Notification() Notification {
	return Notification{
		ID:        q.NotificationID,
		UserID:    q.UserID,
		Channel:   q.Channel,
		Title:     q.Payload.Title,
		Body:      q.Payload.Body,
		Data:      q.Payload.Data,
		ActionURL: q.Payload.ActionURL,
		Priority:  q.Payload.Priority,
	}
}
