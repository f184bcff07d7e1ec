package monitor

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/roach88/pathminer/internal/ir"
)

// Kind names a predicate variant as spelled in definition files.
type Kind string

const (
	KindEquality   Kind = "equality"
	KindCall       Kind = "call"
	KindArity      Kind = "arity"
	KindArgValueRE Kind = "argvalRE"
	KindException  Kind = "exception"
)

// StmtInstance is one visit of a statement along a sampled path. Exception
// is the exception class delivered to the successor taken from this visit,
// or "" when the successor is not a handler entry.
type StmtInstance struct {
	Stmt      ir.Stmt
	Exception string
}

// NewStmtInstance wraps stmt for predicate evaluation.
func NewStmtInstance(stmt ir.Stmt, exception string) StmtInstance {
	return StmtInstance{Stmt: stmt, Exception: exception}
}

func (s StmtInstance) invoke() *ir.InvokeExpr {
	return s.Stmt.Invoke
}

// Predicate gates a transition.
//
// This is a sealed interface. Variants:
//   - Equality: $i (=|!=) $j on a method; never enabled
//   - Call: callee signature equals a string verbatim
//   - Arity: argument count compared against a constant
//   - ArgValueRE: a literal string argument matches a regular expression
//   - Exception: the visit delivers a named exception class
type Predicate interface {
	// Enabled reports whether the predicate holds for the visit.
	Enabled(StmtInstance) bool

	// Kind returns the variant's definition-file token.
	Kind() Kind

	// String renders the predicate's parameters in definition-file syntax.
	String() string

	predicateNode()
}

// Equality is the argument (dis)equality predicate. It is parsed so that
// definition files using it load, but it never enables.
type Equality struct {
	Left   int
	Right  int
	Equal  bool
	Method string
}

func (Equality) predicateNode() {}

// Kind implements Predicate.
func (Equality) Kind() Kind { return KindEquality }

// Enabled always reports false.
func (Equality) Enabled(StmtInstance) bool { return false }

func (p Equality) String() string {
	op := "!="
	if p.Equal {
		op = "="
	}
	return fmt.Sprintf("$%d%s$%d_%s", p.Left, op, p.Right, p.Method)
}

// Call enables on invocations whose quoted callee signature is Signature.
type Call struct {
	Signature string
}

func (Call) predicateNode() {}

// Kind implements Predicate.
func (Call) Kind() Kind { return KindCall }

// Enabled implements Predicate.
func (p Call) Enabled(s StmtInstance) bool {
	inv := s.invoke()
	if inv == nil {
		return false
	}
	return inv.Method.Signature() == p.Signature
}

func (p Call) String() string { return p.Signature }

// ArityOp is the comparison operator of an Arity predicate.
type ArityOp byte

const (
	ArityEq ArityOp = '='
	ArityLt ArityOp = '<'
	ArityGt ArityOp = '>'
)

// Arity compares the invocation's argument count against N.
type Arity struct {
	Op ArityOp
	N  int
}

func (Arity) predicateNode() {}

// Kind implements Predicate.
func (Arity) Kind() Kind { return KindArity }

// Enabled implements Predicate.
func (p Arity) Enabled(s StmtInstance) bool {
	inv := s.invoke()
	if inv == nil {
		return false
	}
	n := len(inv.Args)
	switch p.Op {
	case ArityEq:
		return n == p.N
	case ArityLt:
		return n < p.N
	case ArityGt:
		return n > p.N
	default:
		return false
	}
}

func (p Arity) String() string {
	return string(p.Op) + strconv.Itoa(p.N)
}

// ArgValueRE matches the 1-based argument Arg against Pattern. The argument
// must be a literal string constant and the whole constant must match.
// Negated inverts the result, including for non-constant arguments.
type ArgValueRE struct {
	Negated bool
	Arg     int
	Pattern string

	re *regexp.Regexp
}

// NewArgValueRE compiles pattern for full-string matching. Arguments are
// numbered from 1.
func NewArgValueRE(negated bool, arg int, pattern string) (ArgValueRE, error) {
	if arg < 1 {
		return ArgValueRE{}, fmt.Errorf("argument number %d out of range: arguments start at $1", arg)
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return ArgValueRE{}, fmt.Errorf("invalid pattern syntax %q: %w", pattern, err)
	}
	return ArgValueRE{Negated: negated, Arg: arg, Pattern: pattern, re: re}, nil
}

func (ArgValueRE) predicateNode() {}

// Kind implements Predicate.
func (ArgValueRE) Kind() Kind { return KindArgValueRE }

// Enabled implements Predicate.
func (p ArgValueRE) Enabled(s StmtInstance) bool {
	return p.Negated != p.matches(s)
}

func (p ArgValueRE) matches(s StmtInstance) bool {
	inv := s.invoke()
	if inv == nil || p.re == nil {
		return false
	}
	if p.Arg < 1 || p.Arg > len(inv.Args) {
		return false
	}
	arg := inv.Args[p.Arg-1]
	if !arg.IsStringConstant() {
		return false
	}
	return p.re.MatchString(arg.Repr)
}

func (p ArgValueRE) String() string {
	neg := ""
	if p.Negated {
		neg = "!"
	}
	return fmt.Sprintf(`%s$%d "%s"`, neg, p.Arg, p.Pattern)
}

// Exception enables when the visit delivers exception class Class.
type Exception struct {
	Negated bool
	Class   string
}

func (Exception) predicateNode() {}

// Kind implements Predicate.
func (Exception) Kind() Kind { return KindException }

// Enabled implements Predicate.
func (p Exception) Enabled(s StmtInstance) bool {
	thrown := s.Exception != "" && s.Exception == p.Class
	return p.Negated != thrown
}

func (p Exception) String() string {
	if p.Negated {
		return "!" + p.Class
	}
	return p.Class
}
