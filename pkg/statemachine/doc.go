// Package statemachine describes the legal moves between the states of a
// record as an immutable transition table.
//
// Records such as notifications and queue entries are persisted rather than
// held in memory, so a Machine carries no current state: callers pass the
// stored state and the requested target.
//
//	m := statemachine.NewBuilder[Status]().
//	    From(Pending).To(Sent, Failed).
//	    From(Sent).To(Read).
//	    Build()
//
//	if err := m.Check(stored, Read); err != nil {
//	    // *ErrNoTransitionAvailable
//	}
//
// A built Machine is safe for concurrent use.
package statemachine
