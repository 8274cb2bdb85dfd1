package notifications

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/validator"
)

var (
	// ErrInvalidInput is returned for structurally invalid requests, before any side effect.
	ErrInvalidInput = errors.New("invalid notification request")

	// ErrNotificationNotFound is returned when a notification is not found.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrTemplateNotFound is returned when a template does not exist or is inactive.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrPreferencesNotFound is returned by preference stores for users without a record.
	ErrPreferencesNotFound = errors.New("preferences not found")

	// ErrQueueEntryNotFound is returned when a queue entry does not exist.
	ErrQueueEntryNotFound = errors.New("queue entry not found")

	// ErrMaxAttemptsReached is returned when a retry is requested after the attempt ceiling.
	ErrMaxAttemptsReached = errors.New("maximum retry attempts reached")

	// ErrRetryInProgress is returned when the queue entry is already being processed.
	ErrRetryInProgress = errors.New("retry already in progress")

	// ErrAlreadyCompleted is returned when retrying a queue entry that was delivered.
	ErrAlreadyCompleted = errors.New("queue entry already completed")

	// ErrInvalidTransition is returned for a status change outside the allowed path.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotRetryable is returned when requeueing a notification that is not failed.
	ErrNotRetryable = errors.New("notification is not in a retryable state")

	// ErrInvalidTemplateFile is returned when a template seed file cannot be decoded.
	ErrInvalidTemplateFile = errors.New("invalid template file")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// validate applies rules and wraps any field failures with ErrInvalidInput.
func validate(rules ...validator.Rule) error {
	if err := validator.Apply(rules...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// IsNotFound reports whether err is any of the package's not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotificationNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrPreferencesNotFound) ||
		errors.Is(err, ErrQueueEntryNotFound)
}

// IsConflict reports whether err describes a queue entry that cannot be retried right now.
func IsConflict(err error) bool {
	return errors.Is(err, ErrMaxAttemptsReached) ||
		errors.Is(err, ErrRetryInProgress) ||
		errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNotRetryable)
}
