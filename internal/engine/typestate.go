package engine

import (
	"github.com/roach88/pathminer/internal/cfg"
	"github.com/roach88/pathminer/internal/ir"
	"github.com/roach88/pathminer/internal/monitor"
)

// TypeStateObject tracks one receiver along one sampled path: its identity,
// its own clones of the monitors and its history.
type TypeStateObject struct {
	id       ir.ObjectID
	object   ir.Value
	monitors []*monitor.Monitor
	history  History
}

// NewTypeStateObject creates a tracked object for an operand of the method
// with the given quoted signature. The monitors must already be clones owned
// by the object.
func NewTypeStateObject(method string, object ir.Value, monitors []*monitor.Monitor) *TypeStateObject {
	return &TypeStateObject{id: object.IDIn(method), object: object, monitors: monitors}
}

// ID returns the identity handle of the tracked receiver.
func (t *TypeStateObject) ID() ir.ObjectID { return t.id }

// Type returns the declared type of the tracked receiver.
func (t *TypeStateObject) Type() string { return t.object.Type }

// Monitors returns the object's monitors.
func (t *TypeStateObject) Monitors() []*monitor.Monitor { return t.monitors }

// History returns the object's history.
func (t *TypeStateObject) History() *History { return &t.history }

// HasValidHistory reports whether the history is emitted. Histories shorter
// than two events are never emitted. With validation on, the first call must
// be a constructor or a static call, as weak evidence the construction of
// the object was observed.
func (t *TypeStateObject) HasValidHistory(validate bool) bool {
	if t.history.Len() < 2 {
		return false
	}
	if !validate {
		return true
	}
	first, ok := t.history.firstCall()
	if !ok {
		return false
	}
	return first.constructor || first.static
}

// RelevantAncestor returns the class the object's sequences are attributed
// to. With a type allow-list it is the nearest class in the receiver's
// chain (itself included) that is listed. Without one it is the first class
// in the chain outside the application.
func (t *TypeStateObject) RelevantAncestor(p cfg.Program, types []string) string {
	chain := append([]string{t.object.Type}, cfg.Ancestors(p, t.object.Type)...)

	if len(types) > 0 {
		listed := make(map[string]bool, len(types))
		for _, typ := range types {
			listed[typ] = true
		}
		for _, c := range chain {
			if listed[c] {
				return c
			}
		}
		return t.object.Type
	}

	for _, c := range chain {
		if !p.IsApplicationClass(c) {
			return c
		}
	}
	return chain[len(chain)-1]
}

// findLive returns the non-finalized object with the given identity.
func findLive(objects []*TypeStateObject, id ir.ObjectID) *TypeStateObject {
	for _, t := range objects {
		if !t.history.IsFinalized() && t.ID() == id {
			return t
		}
	}
	return nil
}

// finalizePrevious seals the open history of the object with the given
// identity, if any.
func finalizePrevious(objects []*TypeStateObject, id ir.ObjectID) {
	if t := findLive(objects, id); t != nil {
		t.history.Finalize()
	}
}
