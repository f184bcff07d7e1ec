package testutil

import "github.com/roach88/pathminer/internal/ir"

// ProgramBuilder assembles small programs for tests.
type ProgramBuilder struct {
	prog ir.Program
}

// NewProgram starts an empty program.
func NewProgram() *ProgramBuilder {
	return &ProgramBuilder{prog: ir.Program{Classes: map[string]ir.Class{}}}
}

// AppClass declares an application class.
func (b *ProgramBuilder) AppClass(name, super, sourceFile string) *ProgramBuilder {
	b.prog.Classes[name] = ir.Class{Name: name, Super: super, Application: true, SourceFile: sourceFile}
	return b
}

// LibClass declares a platform class.
func (b *ProgramBuilder) LibClass(name, super string) *ProgramBuilder {
	b.prog.Classes[name] = ir.Class{Name: name, Super: super}
	return b
}

// Method adds a method. sig is an unquoted or quoted signature.
func (b *ProgramBuilder) Method(sig string, static bool, stmts ...ir.Stmt) *ProgramBuilder {
	ref := ir.MustParseSignature(sig)
	m := ir.Method{
		Class:   ref.Class,
		Name:    ref.Name,
		Params:  ref.Params,
		Returns: ref.Returns,
		Static:  static,
	}
	if len(stmts) > 0 {
		m.Body = &ir.Body{Stmts: stmts}
	}
	b.prog.Methods = append(b.prog.Methods, m)
	return b
}

// Trap adds an exception table entry to the most recently added method.
func (b *ProgramBuilder) Trap(begin, end, handler int, exception string) *ProgramBuilder {
	m := &b.prog.Methods[len(b.prog.Methods)-1]
	m.Body.Traps = append(m.Body.Traps, ir.Trap{Begin: begin, End: end, Handler: handler, Exception: exception})
	return b
}

// Constructor marks the most recently added method as an initializer.
func (b *ProgramBuilder) Constructor() *ProgramBuilder {
	b.prog.Methods[len(b.prog.Methods)-1].Constructor = true
	return b
}

// Build returns the program.
func (b *ProgramBuilder) Build() *ir.Program {
	return &b.prog
}

// Local returns a local variable operand.
func Local(name, typ string) ir.Value {
	return ir.Value{Kind: ir.ValueLocal, Repr: name, Type: typ}
}

// Str returns a string constant operand.
func Str(s string) ir.Value {
	return ir.Value{Kind: ir.ValueString, Repr: s, Type: "java.lang.String"}
}

// Virtual returns an instance call statement on base.
func Virtual(base ir.Value, sig string, succs []int, args ...ir.Value) ir.Stmt {
	return ir.Stmt{
		Kind:  ir.StmtInvoke,
		Succs: succs,
		Invoke: &ir.InvokeExpr{
			Kind:   ir.InvokeVirtual,
			Method: ir.MustParseSignature(sig),
			Base:   &base,
			Args:   args,
		},
	}
}

// New returns a constructor call statement on base.
func New(base ir.Value, sig string, succs []int, args ...ir.Value) ir.Stmt {
	s := Virtual(base, sig, succs, args...)
	s.Invoke.Kind = ir.InvokeSpecial
	return s
}

// Static returns a static call statement. A non-nil def makes it an
// assignment of the call's result.
func Static(def *ir.Value, sig string, succs []int, args ...ir.Value) ir.Stmt {
	s := ir.Stmt{
		Kind:  ir.StmtInvoke,
		Succs: succs,
		Invoke: &ir.InvokeExpr{
			Kind:   ir.InvokeStatic,
			Method: ir.MustParseSignature(sig),
			Args:   args,
		},
	}
	if def != nil {
		s.Kind = ir.StmtAssign
		s.Def = def
	}
	return s
}

// If returns a two-way branch.
func If(then, els int) ir.Stmt {
	return ir.Stmt{Kind: ir.StmtIf, Succs: []int{then, els}}
}

// Goto returns an unconditional jump.
func Goto(target int) ir.Stmt {
	return ir.Stmt{Kind: ir.StmtGoto, Succs: []int{target}}
}

// Nop returns a statement that falls through to next.
func Nop(next int) ir.Stmt {
	return ir.Stmt{Kind: ir.StmtNop, Succs: []int{next}}
}

// Return returns a void return.
func Return() ir.Stmt {
	return ir.Stmt{Kind: ir.StmtReturnVoid}
}

// Throw returns an uncaught throw.
func Throw() ir.Stmt {
	return ir.Stmt{Kind: ir.StmtThrow}
}

// Succ is shorthand for a single successor list.
func Succ(ids ...int) []int {
	return ids
}

// WithLine sets the source line of s.
func WithLine(s ir.Stmt, line int) ir.Stmt {
	s.Line = line
	return s
}
