// Package form holds the transition tables that drive the multi-step
// wishlist and item forms.
package form

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for any (state, event) pair that is not
// in the machine's table.
var ErrInvalidTransition = errors.New("invalid form transition")

// Transition is one row of a transition table.
type Transition[S comparable, E comparable] struct {
	From S
	On   E
	To   S
}

// Machine is an immutable transition table.
type Machine[S comparable, E comparable] struct {
	initial S
	table   map[S]map[E]S
}

// NewMachine builds a machine that starts in initial. Duplicate rows for the
// same (From, On) pair panic, since the table would be ambiguous.
func NewMachine[S comparable, E comparable](initial S, transitions ...Transition[S, E]) *Machine[S, E] {
	table := make(map[S]map[E]S)
	for _, t := range transitions {
		row, ok := table[t.From]
		if !ok {
			row = make(map[E]S)
			table[t.From] = row
		}
		if _, dup := row[t.On]; dup {
			panic(fmt.Sprintf("form: duplicate transition %v on %v", t.From, t.On))
		}
		row[t.On] = t.To
	}
	return &Machine[S, E]{initial: initial, table: table}
}

func (m *Machine[S, E]) Initial() S {
	return m.initial
}

// Fire returns the state reached from state on event.
func (m *Machine[S, E]) Fire(state S, event E) (S, error) {
	if to, ok := m.table[state][event]; ok {
		return to, nil
	}
	return state, fmt.Errorf("%w: %v on %v", ErrInvalidTransition, state, event)
}

// Can reports whether event is legal in state.
func (m *Machine[S, E]) Can(state S, event E) bool {
	_, ok := m.table[state][event]
	return ok
}
