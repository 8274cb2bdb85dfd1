package statemachine

import (
	"errors"
	"fmt"
)

// ErrNoTransitionAvailable indicates the table has no move between two states.
type ErrNoTransitionAvailable struct {
	From string
	To   string
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("no transition available from state '%s' to '%s'", e.From, e.To)
}

func NewErrNoTransitionAvailable[S comparable](from, to S) *ErrNoTransitionAvailable {
	return &ErrNoTransitionAvailable{
		From: fmt.Sprint(from),
		To:   fmt.Sprint(to),
	}
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}
