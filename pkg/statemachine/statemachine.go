package statemachine

import "slices"

// Machine is an immutable set of allowed from -> to moves.
type Machine[S comparable] struct {
	edges map[S][]S
	order []S
}

// Can reports whether a record may move from one state to another.
func (m *Machine[S]) Can(from, to S) bool {
	return slices.Contains(m.edges[from], to)
}

// Check returns *ErrNoTransitionAvailable when the move is not allowed.
func (m *Machine[S]) Check(from, to S) error {
	if m.Can(from, to) {
		return nil
	}
	return NewErrNoTransitionAvailable(from, to)
}

// Targets lists the states reachable from from in one move.
func (m *Machine[S]) Targets(from S) []S {
	return slices.Clone(m.edges[from])
}

// Sources lists the states from which to is reachable in one move, in the
// order they were declared.
func (m *Machine[S]) Sources(to S) []S {
	var from []S
	for _, s := range m.order {
		if m.Can(s, to) {
			from = append(from, s)
		}
	}
	return from
}

// Builder declares transitions with a fluent API.
type Builder[S comparable] struct {
	machine *Machine[S]
	from    S
}

func NewBuilder[S comparable]() *Builder[S] {
	return &Builder[S]{machine: &Machine[S]{edges: make(map[S][]S)}}
}

// From sets the source state for the following To call.
func (b *Builder[S]) From(state S) *Builder[S] {
	b.from = state
	if _, ok := b.machine.edges[state]; !ok {
		b.machine.edges[state] = nil
		b.machine.order = append(b.machine.order, state)
	}
	return b
}

// To allows moves from the current source state to every target.
func (b *Builder[S]) To(targets ...S) *Builder[S] {
	for _, t := range targets {
		if !slices.Contains(b.machine.edges[b.from], t) {
			b.machine.edges[b.from] = append(b.machine.edges[b.from], t)
		}
	}
	return b
}

// Build returns the machine. The builder must not be used afterwards.
func (b *Builder[S]) Build() *Machine[S] {
	m := b.machine
	b.machine = nil
	return m
}
