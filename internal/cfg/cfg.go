package cfg

import (
	"fmt"
	"slices"

	"github.com/roach88/pathminer/internal/ir"
)

// Mode selects how unit graphs are built.
type Mode string

const (
	ModeBrief Mode = "brief"
	ModeTrap  Mode = "trap"
)

// Program is the collaborator consulted by the extractor.
type Program interface {
	// Method looks a method up by its quoted signature.
	Method(sig string) (ir.Method, bool)

	// Methods returns every method with a body, in description order.
	Methods() []ir.Method

	// Graph returns the unit graph of a method with a body.
	Graph(m ir.Method) (Graph, error)

	// IsApplicationMethod reports whether ref resolves to a method with a
	// body declared by an application class.
	IsApplicationMethod(ref ir.MethodRef) bool

	// IsApplicationClass reports whether the named class belongs to the
	// analyzed application.
	IsApplicationClass(name string) bool

	// Superclass returns the direct superclass of a known class.
	Superclass(name string) (string, bool)

	// HasClass reports whether the program knows the named class.
	HasClass(name string) bool

	// SourceFile returns the source file of a class, or "".
	SourceFile(class string) string
}

// Graph is the statement-level control-flow graph of one method body.
// Statements are identified by their index.
type Graph interface {
	Method() ir.Method
	Entry() int
	Len() int
	Stmt(id int) ir.Stmt
	Succs(id int) []int

	// HandlerException returns the exception class caught by the handler
	// starting at id, or "" when id is not a handler entry.
	HandlerException(id int) string
}

// memProgram is the in-memory Program over a compiled description.
type memProgram struct {
	prog    *ir.Program
	mode    Mode
	bySig   map[string]int
	graphs  map[string]*memGraph
	methods []ir.Method
}

// New builds a Program over a compiled description.
func New(prog *ir.Program, mode Mode) (Program, error) {
	if mode != ModeBrief && mode != ModeTrap {
		return nil, fmt.Errorf("unknown unit graph mode %q", mode)
	}

	p := &memProgram{
		prog:   prog,
		mode:   mode,
		bySig:  make(map[string]int, len(prog.Methods)),
		graphs: make(map[string]*memGraph),
	}
	for i, m := range prog.Methods {
		sig := m.Signature()
		if _, dup := p.bySig[sig]; dup {
			return nil, fmt.Errorf("duplicate method %s", sig)
		}
		p.bySig[sig] = i
		if m.Body != nil {
			p.methods = append(p.methods, m)
		}
	}
	return p, nil
}

func (p *memProgram) Method(sig string) (ir.Method, bool) {
	i, ok := p.bySig[sig]
	if !ok {
		return ir.Method{}, false
	}
	return p.prog.Methods[i], true
}

func (p *memProgram) Methods() []ir.Method {
	return p.methods
}

func (p *memProgram) Graph(m ir.Method) (Graph, error) {
	sig := m.Signature()
	if g, ok := p.graphs[sig]; ok {
		return g, nil
	}
	if m.Body == nil || len(m.Body.Stmts) == 0 {
		return nil, fmt.Errorf("method %s has no body", sig)
	}

	g := buildGraph(m, p.mode)
	p.graphs[sig] = g
	return g, nil
}

func (p *memProgram) IsApplicationMethod(ref ir.MethodRef) bool {
	m, ok := p.Method(ref.Signature())
	if !ok || m.Body == nil {
		return false
	}
	return p.IsApplicationClass(m.Class)
}

func (p *memProgram) IsApplicationClass(name string) bool {
	c, ok := p.prog.Classes[name]
	return ok && c.Application
}

func (p *memProgram) Superclass(name string) (string, bool) {
	c, ok := p.prog.Classes[name]
	if !ok || c.Super == "" {
		return "", false
	}
	return c.Super, true
}

func (p *memProgram) HasClass(name string) bool {
	_, ok := p.prog.Classes[name]
	return ok
}

func (p *memProgram) SourceFile(class string) string {
	return p.prog.Classes[class].SourceFile
}

type memGraph struct {
	method   ir.Method
	succs    [][]int
	handlers map[int]string
}

func buildGraph(m ir.Method, mode Mode) *memGraph {
	body := m.Body
	g := &memGraph{
		method:   m,
		succs:    make([][]int, len(body.Stmts)),
		handlers: make(map[int]string),
	}

	for i := len(body.Traps) - 1; i >= 0; i-- {
		// first trap wins for shared handlers
		g.handlers[body.Traps[i].Handler] = body.Traps[i].Exception
	}

	for id, s := range body.Stmts {
		succs := slices.Clone(s.Succs)
		if mode == ModeTrap {
			for _, t := range body.Traps {
				if t.Covers(id) && !slices.Contains(succs, t.Handler) {
					succs = append(succs, t.Handler)
				}
			}
		}
		g.succs[id] = succs
	}
	return g
}

func (g *memGraph) Method() ir.Method { return g.method }

func (g *memGraph) Entry() int { return 0 }

func (g *memGraph) Len() int { return len(g.succs) }

func (g *memGraph) Stmt(id int) ir.Stmt { return g.method.Body.Stmts[id] }

func (g *memGraph) Succs(id int) []int { return g.succs[id] }

func (g *memGraph) HandlerException(id int) string { return g.handlers[id] }
