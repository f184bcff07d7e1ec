package engine

import (
	"fmt"
	"strconv"

	"github.com/roach88/pathminer/internal/cfg"
)

// locations renders event locations. Statements without a source file and
// line get a stable "LOC<n>" index, assigned in first-use order and owned by
// one Extractor.
type locations struct {
	prog  cfg.Program
	index map[string]int
}

func newLocations(prog cfg.Program) *locations {
	return &locations{prog: prog, index: make(map[string]int)}
}

// of returns the location of statement id in g.
func (l *locations) of(g cfg.Graph, id int) string {
	m := g.Method()
	file := l.prog.SourceFile(m.Class)
	line := g.Stmt(id).Line
	if file != "" && line > 0 {
		return file + "@" + strconv.Itoa(line)
	}

	key := fmt.Sprintf("%s#%d", m.Signature(), id)
	n, ok := l.index[key]
	if !ok {
		n = len(l.index)
		l.index[key] = n
	}
	return "LOC" + strconv.Itoa(n)
}
