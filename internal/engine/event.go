package engine

import (
	"errors"

	"github.com/roach88/pathminer/internal/ir"
)

// Event is one entry of a history: a call on the tracked object with the
// monitor states after it, or a branch with its successor count.
type Event struct {
	callee      ir.MethodRef
	constructor bool
	static      bool
	states   []int
	location string
	branches int
	branch   bool
}

// CallEvent creates a call event. states holds one state per monitor, in
// monitor order. The callee counts as a constructor when it is named <init>.
func CallEvent(callee ir.MethodRef, static bool, states []int, location string) Event {
	return Event{
		callee:      callee,
		constructor: callee.IsConstructor(),
		static:      static,
		states:      states,
		location:    location,
	}
}

// BranchEvent creates a branch event.
func BranchEvent(n int) Event {
	return Event{branches: n, branch: true}
}

// IsBranch reports whether e is a branch event.
func (e Event) IsBranch() bool { return e.branch }

// Callee returns the called method of a call event.
func (e Event) Callee() ir.MethodRef { return e.callee }

// States returns the monitor states recorded with a call event.
func (e Event) States() []int { return e.states }

// Record returns the serialized form of e.
func (e Event) Record() ir.EventRecord {
	if e.branch {
		return ir.BranchRecord(e.branches)
	}
	return ir.CallRecord(e.callee.Signature(), e.states, e.location)
}

// ErrFinalizedHistory is returned when an event is added to a sealed history.
var ErrFinalizedHistory = errors.New("event added to finalized history")

// History is the append-only event log of one tracked object.
type History struct {
	events    []Event
	finalized bool
}

// Add appends e. Adding to a finalized history fails with
// ErrFinalizedHistory and leaves the events unchanged.
func (h *History) Add(e Event) error {
	if h.finalized {
		return ErrFinalizedHistory
	}
	h.events = append(h.events, e)
	return nil
}

// Finalize seals the history. Finalizing twice has no further effect.
func (h *History) Finalize() {
	h.finalized = true
}

// IsFinalized reports whether the history is sealed.
func (h *History) IsFinalized() bool { return h.finalized }

// Events returns the recorded events. Callers must not modify them.
func (h *History) Events() []Event { return h.events }

// Len returns the number of events.
func (h *History) Len() int { return len(h.events) }

// Record returns the serialized form of h.
func (h *History) Record() ir.HistoryRecord {
	rec := ir.HistoryRecord{Sequence: make([]ir.EventRecord, len(h.events))}
	for i, e := range h.events {
		rec.Sequence[i] = e.Record()
	}
	return rec
}

// firstCall returns the first call event.
func (h *History) firstCall() (Event, bool) {
	for _, e := range h.events {
		if !e.branch {
			return e, true
		}
	}
	return Event{}, false
}
