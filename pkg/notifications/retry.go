package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// RetryOutcome reports a single retry attempt.
type RetryOutcome struct {
	QueueID     string `json:"queue_id"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	Result      Result `json:"result"`
}

// SweepResult summarizes a RetryDue run.
type SweepResult struct {
	Scanned   int      `json:"scanned"`
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// Retry makes one more delivery attempt for a queue entry.
//
// The attempt counter is incremented before the send, atomically with the
// transition to processing. Entries that are completed, out of attempts or
// processing within the lease are rejected without mutation. An entry left
// processing past the lease by a crashed worker is claimed again.
func (d *Dispatcher) Retry(ctx context.Context, queueID string) (RetryOutcome, error) {
	if queueID == "" {
		return RetryOutcome{}, invalidInput("queue id is required")
	}

	now := d.now()
	entry, err := d.queue.Claim(ctx, queueID, now, now.Add(-d.processingLease))
	if err != nil {
		return RetryOutcome{}, err
	}

	out := RetryOutcome{
		QueueID:     entry.ID,
		Attempt:     entry.Attempts,
		MaxAttempts: entry.MaxAttempts,
	}

	if _, err := d.notifications.Get(ctx, entry.NotificationID); err != nil {
		msg := fmt.Sprintf("originating notification %s: %v", entry.NotificationID, err)
		if ferr := d.queue.Fail(ctx, entry.ID, msg); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return out, err
	}

	notif := entry.Notification()
	out.Result = d.senders.Send(ctx, notif, d.sendTimeout)

	if !out.Result.Success {
		if err := d.queue.Fail(ctx, entry.ID, out.Result.Error); err != nil {
			d.logPartialState(ctx, "retry failed but queue entry not marked failed", notif, entry.ID, err)
			return out, fmt.Errorf("failed to record retry failure: %w", err)
		}
		d.logger.LogAttrs(ctx, slog.LevelWarn, "retry attempt failed",
			logger.QueueID(entry.ID),
			logger.NotificationID(entry.NotificationID),
			logger.Channel(string(entry.Channel)),
			logger.Attempt(entry.Attempts, entry.MaxAttempts),
			slog.String("reason", out.Result.Error),
		)
		return out, nil
	}

	if err := d.queue.Complete(ctx, entry.ID); err != nil {
		d.logPartialState(ctx, "notification sent but queue entry not completed", notif, entry.ID, err)
		return out, fmt.Errorf("failed to complete queue entry: %w", err)
	}
	sentAt := d.now()
	if err := d.notifications.UpdateStatus(ctx, entry.NotificationID, StatusDelivered, StatusTimestamps{SentAt: &sentAt}); err != nil {
		d.logPartialState(ctx, "notification sent but not marked delivered", notif, entry.ID, err)
		return out, fmt.Errorf("failed to mark notification delivered: %w", err)
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "retry attempt delivered",
		logger.QueueID(entry.ID),
		logger.NotificationID(entry.NotificationID),
		logger.Channel(string(entry.Channel)),
		logger.Attempt(entry.Attempts, entry.MaxAttempts),
	)
	return out, nil
}

// EnqueueRetry creates the queue entry that makes a failed notification
// retryable. A notification has at most one open entry; when it exists it is
// returned unchanged.
func (d *Dispatcher) EnqueueRetry(ctx context.Context, notificationID string) (*QueuedNotification, error) {
	if notificationID == "" {
		return nil, invalidInput("notification id is required")
	}

	notif, err := d.notifications.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}

	existing, err := d.queue.GetOpenByNotification(ctx, notificationID)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, ErrQueueEntryNotFound):
		return nil, fmt.Errorf("failed to look up queue entry: %w", err)
	}

	if notif.Status != StatusFailed {
		return nil, fmt.Errorf("%w: status is %s", ErrNotRetryable, notif.Status)
	}

	entry := d.newQueueEntry(*notif, nil)
	if err := d.queue.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to enqueue retry: %w", err)
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "notification queued for retry",
		logger.NotificationID(notif.ID),
		logger.QueueID(entry.ID),
		logger.Channel(string(notif.Channel)),
	)
	return &entry, nil
}

// RetryDue retries up to limit entries that are due: pending entries whose
// scheduled time has passed and failed entries whose backoff has elapsed.
// Entries are processed concurrently and independently.
func (d *Dispatcher) RetryDue(ctx context.Context, limit int) (SweepResult, error) {
	now := d.now()
	due, err := d.queue.ListDue(ctx, now, now.Add(-d.processingLease), limit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list due queue entries: %w", err)
	}

	res := SweepResult{Scanned: len(due)}
	outcomes := make([]*RetryOutcome, len(due))
	errs := make([]error, len(due))

	var g errgroup.Group
	g.SetLimit(d.bulkConcurrency)
	for i, entry := range due {
		if !d.backoffElapsed(entry) {
			res.Skipped++
			continue
		}
		res.Attempted++
		g.Go(func() error {
			out, err := d.Retry(ctx, entry.ID)
			if err != nil {
				errs[i] = err
				return nil
			}
			outcomes[i] = &out
			return nil
		})
	}
	_ = g.Wait()

	for i := range due {
		switch {
		case errs[i] != nil:
			// Lost a race with a concurrent retry; not a failure of this sweep.
			if IsConflict(errs[i]) {
				res.Skipped++
				continue
			}
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("queue entry %s: %v", due[i].ID, errs[i]))
		case outcomes[i] == nil:
		case outcomes[i].Result.Success:
			res.Succeeded++
		default:
			res.Failed++
		}
	}

	if res.Attempted > 0 {
		d.logger.LogAttrs(ctx, slog.LevelInfo, "retry sweep finished",
			slog.Int("scanned", res.Scanned),
			slog.Int("attempted", res.Attempted),
			slog.Int("succeeded", res.Succeeded),
			slog.Int("failed", res.Failed),
		)
	}
	return res, nil
}

func (d *Dispatcher) backoffElapsed(entry QueuedNotification) bool {
	if entry.Status != QueueStatusFailed || entry.LastAttempt == nil {
		return true
	}
	next := entry.LastAttempt.Add(d.backoff.NextInterval(entry.Attempts))
	return !next.After(d.now())
}
