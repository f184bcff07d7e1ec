package monitor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// State identifies one state of one automaton. Every automaton starts in 0.
type State int

// InitialState is the state of a fresh or reset monitor.
const InitialState State = 0

func (s State) String() string { return strconv.Itoa(int(s)) }

// ErrNilPredicate is returned when a transition is built without a predicate.
var ErrNilPredicate = errors.New("transition requires a predicate")

// Transition is an immutable edge gated by a predicate.
type Transition struct {
	from State
	to   State
	pred Predicate
}

// NewTransition creates a transition. The predicate must be non-nil.
func NewTransition(from, to State, pred Predicate) (Transition, error) {
	if pred == nil {
		return Transition{}, fmt.Errorf("%d->%d: %w", from, to, ErrNilPredicate)
	}
	return Transition{from: from, to: to, pred: pred}, nil
}

// MustTransition is like NewTransition but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTransition(from, to State, pred Predicate) Transition {
	t, err := NewTransition(from, to, pred)
	if err != nil {
		panic(err)
	}
	return t
}

// From returns the source state.
func (t Transition) From() State { return t.from }

// To returns the target state.
func (t Transition) To() State { return t.to }

// Predicate returns the gating predicate.
func (t Transition) Predicate() Predicate { return t.pred }

// Enabled reports whether the transition's predicate holds for s.
func (t Transition) Enabled(s StmtInstance) bool {
	return t.pred.Enabled(s)
}

// String renders the transition in definition-file syntax.
func (t Transition) String() string {
	return fmt.Sprintf("%d->%d %s %s", t.from, t.to, t.pred.Kind(), t.pred.String())
}

// Monitor is one automaton instance: a current state over a shared,
// read-only transition table.
type Monitor struct {
	state       State
	transitions []Transition
}

// New creates a monitor in the initial state. The transition slice is owned
// by the monitor and its clones and must not be modified afterwards.
func New(transitions []Transition) *Monitor {
	return &Monitor{state: InitialState, transitions: transitions}
}

// State returns the current state.
func (m *Monitor) State() State {
	return m.state
}

// Transitions returns the transition table. Callers must not modify it.
func (m *Monitor) Transitions() []Transition {
	return m.transitions
}

// Reset returns the monitor to the initial state.
func (m *Monitor) Reset() {
	m.state = InitialState
}

// Clone copies the current state and shares the transition table.
func (m *Monitor) Clone() *Monitor {
	return &Monitor{state: m.state, transitions: m.transitions}
}

// Post feeds one statement visit to the monitor. If exactly one transition
// out of the current state is enabled the monitor moves to its target. With
// none enabled the state is unchanged. More than one enabled transition is a
// defect in the definitions: the state is left unchanged and a
// *NondeterminismError is returned.
func (m *Monitor) Post(s StmtInstance) error {
	var enabled []int
	for i, t := range m.transitions {
		if t.from == m.state && t.Enabled(s) {
			enabled = append(enabled, i)
		}
	}

	switch len(enabled) {
	case 0:
		return nil
	case 1:
		m.state = m.transitions[enabled[0]].to
		return nil
	default:
		conflicting := make([]string, len(enabled))
		for i, idx := range enabled {
			conflicting[i] = m.transitions[idx].String()
		}
		return &NondeterminismError{
			State:       m.state,
			Call:        callOf(s),
			Transitions: conflicting,
		}
	}
}

func callOf(s StmtInstance) string {
	if s.Stmt.Invoke == nil {
		return string(s.Stmt.Kind)
	}
	return s.Stmt.Invoke.Method.Signature()
}

// NondeterminismError reports more than one transition enabled from the
// same state for the same visit.
type NondeterminismError struct {
	State       State
	Call        string
	Transitions []string
}

func (e *NondeterminismError) Error() string {
	return fmt.Sprintf("more than one enabled transition for %s from state %d: %s",
		e.Call, e.State, strings.Join(e.Transitions, "; "))
}

// IsNondeterminismError returns true if err is a NondeterminismError.
// Uses errors.As to handle wrapped errors.
func IsNondeterminismError(err error) bool {
	var ne *NondeterminismError
	return errors.As(err, &ne)
}

// CloneAll clones every monitor in order.
func CloneAll(ms []*Monitor) []*Monitor {
	out := make([]*Monitor, len(ms))
	for i, m := range ms {
		out[i] = m.Clone()
	}
	return out
}

// PostAll feeds s to every monitor in order, stopping at the first error.
func PostAll(ms []*Monitor, s StmtInstance) error {
	for i, m := range ms {
		if err := m.Post(s); err != nil {
			return fmt.Errorf("monitor %d: %w", i, err)
		}
	}
	return nil
}

// States returns the current state of every monitor, in order.
func States(ms []*Monitor) []int {
	states := make([]int, len(ms))
	for i, m := range ms {
		states[i] = int(m.state)
	}
	return states
}
