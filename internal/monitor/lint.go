package monitor

import "fmt"

// Conflict is a pair of transitions that leave the same state on the same
// predicate, so they are enabled together whenever either one is.
type Conflict struct {
	Monitor int
	State   State
	First   Transition
	Second  Transition
}

func (c Conflict) String() string {
	return fmt.Sprintf("monitor %d, state %d: %q and %q are enabled together",
		c.Monitor, c.State, c.First.String(), c.Second.String())
}

// Lint reports statically conflicting transitions. Only syntactically
// identical predicates are detected; overlapping regular expressions or
// arity ranges are not. Equality predicates never enable and are ignored.
func Lint(ms []*Monitor) []Conflict {
	type key struct {
		from State
		kind Kind
		text string
	}

	var conflicts []Conflict
	for mi, m := range ms {
		seen := make(map[key]Transition)
		for _, t := range m.transitions {
			if t.pred.Kind() == KindEquality {
				continue
			}
			k := key{from: t.from, kind: t.pred.Kind(), text: t.pred.String()}
			if prev, ok := seen[k]; ok {
				conflicts = append(conflicts, Conflict{
					Monitor: mi,
					State:   t.from,
					First:   prev,
					Second:  t,
				})
				continue
			}
			seen[k] = t
		}
	}
	return conflicts
}
