package engine

import (
	"strconv"

	"github.com/roach88/pathminer/internal/cfg"
	"github.com/roach88/pathminer/internal/ir"
)

// Path is the ordered list of successors chosen at multi-successor
// statements during one attempt. A choice point is identified by the method
// and index of the chosen statement. Paths of different entry methods never
// compare equal.
type Path struct {
	entry   string
	choices []string
}

// NewPath creates an empty path for a walk starting at entry.
func NewPath(entry string) *Path {
	return &Path{entry: entry}
}

// Add records that succ was chosen in g.
func (p *Path) Add(g cfg.Graph, succ int) {
	p.choices = append(p.choices, g.Method().Signature()+"#"+strconv.Itoa(succ))
}

// Len returns the number of choice points.
func (p *Path) Len() int { return len(p.choices) }

// Choices returns the recorded choice points.
func (p *Path) Choices() []string { return p.choices }

// Hash returns the identity of the choice-point sequence.
func (p *Path) Hash() string {
	return ir.PathHash(append([]string{p.entry}, p.choices...))
}

// pathSet remembers accepted paths across all methods of a run.
type pathSet map[string]struct{}

// accept records p and reports whether it was new.
func (s pathSet) accept(p *Path) bool {
	h := p.Hash()
	if _, seen := s[h]; seen {
		return false
	}
	s[h] = struct{}{}
	return true
}
