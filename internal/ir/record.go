package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EventRecord is the serialized form of one event. Exactly one of the two
// shapes is populated: a call event (Call, States, optional Location) or a
// branch event (Branches).
type EventRecord struct {
	Call     string `json:"call,omitempty"`
	States   []int  `json:"states,omitempty"`
	Location string `json:"location,omitempty"`
	Branches *int   `json:"branches,omitempty"`
}

// CallRecord creates a call event record.
func CallRecord(call string, states []int, location string) EventRecord {
	if states == nil {
		states = []int{}
	}
	return EventRecord{Call: call, States: states, Location: location}
}

// BranchRecord creates a branch event record.
func BranchRecord(n int) EventRecord {
	return EventRecord{Branches: &n}
}

// IsBranch reports whether r is a branch event.
func (r EventRecord) IsBranch() bool {
	return r.Branches != nil
}

// MarshalJSON keeps "states" present (possibly empty) on call events.
// Signatures are written without HTML escaping, so "<init>" stays readable.
func (r EventRecord) MarshalJSON() ([]byte, error) {
	if r.IsBranch() {
		return marshalUnescaped(struct {
			Branches int `json:"branches"`
		}{*r.Branches})
	}
	states := r.States
	if states == nil {
		states = []int{}
	}
	return marshalUnescaped(struct {
		Call     string `json:"call"`
		States   []int  `json:"states"`
		Location string `json:"location,omitempty"`
	}{r.Call, states, r.Location})
}

func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// String renders the plain-text form: signature[s1,s2][location], or the
// branch count for branch events.
func (r EventRecord) String() string {
	if r.IsBranch() {
		return strconv.Itoa(*r.Branches)
	}
	return r.Call + "[" + joinStates(r.States) + "][" + r.Location + "]"
}

// Canonical returns a map form suitable for MarshalCanonical.
func (r EventRecord) Canonical() map[string]any {
	if r.IsBranch() {
		return map[string]any{"branches": *r.Branches}
	}
	states := make([]any, len(r.States))
	for i, s := range r.States {
		states[i] = s
	}
	m := map[string]any{
		"call":   r.Call,
		"states": states,
	}
	if r.Location != "" {
		m["location"] = r.Location
	}
	return m
}

// HistoryRecord is the serialized form of one emitted history.
type HistoryRecord struct {
	Sequence []EventRecord `json:"sequence"`
}

// Canonical returns a map form suitable for MarshalCanonical.
func (h HistoryRecord) Canonical() map[string]any {
	events := make([]any, len(h.Sequence))
	for i, e := range h.Sequence {
		events[i] = e.Canonical()
	}
	return map[string]any{"sequence": events}
}

// Text renders the plain-text line for h. When sentinels is set, the line
// is bracketed by a START event carrying initial states and an END event
// carrying the states of the last call event.
func (h HistoryRecord) Text(sentinels bool) string {
	if len(h.Sequence) == 0 {
		return ""
	}

	var b strings.Builder
	if sentinels {
		n := 0
		if first, ok := h.firstCall(); ok {
			n = len(first.States)
		}
		fmt.Fprintf(&b, `"START"[%s][];`, joinStates(make([]int, n)))
	}
	for _, e := range h.Sequence {
		b.WriteString(e.String())
		b.WriteByte(';')
	}
	if sentinels {
		var last []int
		if e, ok := h.lastCall(); ok {
			last = e.States
		}
		fmt.Fprintf(&b, `"END"[%s][];`, joinStates(last))
	}
	return b.String()
}

func (h HistoryRecord) firstCall() (EventRecord, bool) {
	for _, e := range h.Sequence {
		if !e.IsBranch() {
			return e, true
		}
	}
	return EventRecord{}, false
}

func (h HistoryRecord) lastCall() (EventRecord, bool) {
	for i := len(h.Sequence) - 1; i >= 0; i-- {
		if !h.Sequence[i].IsBranch() {
			return h.Sequence[i], true
		}
	}
	return EventRecord{}, false
}

// Document is the structured output of one run.
type Document struct {
	Data []HistoryRecord `json:"data"`
}

func joinStates(states []int) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}
