package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/pathminer/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrUndeclaredClass   = "E201" // method of a class missing from classes
	ErrDuplicateMethod   = "E202" // two methods with the same signature
	ErrEmptyBody         = "E203" // body without statements
	ErrSuccOutOfRange    = "E204" // successor index outside the body
	ErrInvalidTrapRange  = "E205" // trap begin/end outside the body or reversed
	ErrHandlerOutOfRange = "E206" // trap handler outside the body
	ErrMissingInvoke     = "E207" // invoke statement without invoke expression
	ErrUnexpectedInvoke  = "E208" // invoke expression on a non-call statement
	ErrReturnWithSuccs   = "E209" // return statement with successors
	ErrMissingReceiver   = "E210" // instance call without base
	ErrStaticReceiver    = "E211" // static call with base
	ErrMissingValueType  = "E212" // operand without type
	ErrUnknownStmtKind   = "E213" // statement kind outside the schema
	ErrUnknownInvokeKind = "E214" // invoke kind outside the schema
	ErrCyclicHierarchy   = "E215" // class is its own ancestor
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`

	path []any
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

func newValidationError(code, msg string, path ...any) ValidationError {
	return ValidationError{Field: formatPath(path), Message: msg, Code: code, path: path}
}

// formatPath renders ["methods", 2, "body"] as "methods[2].body".
func formatPath(path []any) string {
	var b strings.Builder
	for _, p := range path {
		switch p := p.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", p)
		default:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			fmt.Fprint(&b, p)
		}
	}
	return b.String()
}

// Validate checks a compiled program for semantic errors.
// Returns all errors found (does not fail-fast), in a stable order.
func Validate(prog *ir.Program) []ValidationError {
	var errs []ValidationError

	names := make([]string, 0, len(prog.Classes))
	for name := range prog.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if cyclicHierarchy(prog, name) {
			errs = append(errs, newValidationError(ErrCyclicHierarchy,
				fmt.Sprintf("class %s is its own ancestor", name), "classes", name))
		}
	}

	seen := make(map[string]int)
	for mi, m := range prog.Methods {
		sig := m.Signature()
		if _, ok := prog.Classes[m.Class]; !ok {
			errs = append(errs, newValidationError(ErrUndeclaredClass,
				fmt.Sprintf("class %s is not declared", m.Class), "methods", mi, "class"))
		}
		if prev, dup := seen[sig]; dup {
			errs = append(errs, newValidationError(ErrDuplicateMethod,
				fmt.Sprintf("%s already declared at methods[%d]", sig, prev), "methods", mi))
		} else {
			seen[sig] = mi
		}
		if m.Body != nil {
			errs = append(errs, validateBody(m.Body, mi)...)
		}
	}
	return errs
}

func cyclicHierarchy(prog *ir.Program, name string) bool {
	visited := map[string]bool{}
	for cur := name; ; {
		c, ok := prog.Classes[cur]
		if !ok || c.Super == "" {
			return false
		}
		if c.Super == name {
			return true
		}
		if visited[c.Super] {
			return false
		}
		visited[c.Super] = true
		cur = c.Super
	}
}

func validateBody(body *ir.Body, mi int) []ValidationError {
	var errs []ValidationError
	n := len(body.Stmts)

	if n == 0 {
		return []ValidationError{newValidationError(ErrEmptyBody,
			"body must have at least one statement", "methods", mi, "body", "stmts")}
	}

	for si, s := range body.Stmts {
		at := func(rest ...any) []any {
			return append([]any{"methods", mi, "body", "stmts", si}, rest...)
		}

		if !ir.ValidStmtKinds[s.Kind] {
			errs = append(errs, newValidationError(ErrUnknownStmtKind,
				fmt.Sprintf("unknown statement kind %q", s.Kind), at("kind")...))
		}
		for _, succ := range s.Succs {
			if succ < 0 || succ >= n {
				errs = append(errs, newValidationError(ErrSuccOutOfRange,
					fmt.Sprintf("successor %d outside body of %d statements", succ, n), at("succs")...))
			}
		}
		if s.IsReturn() && len(s.Succs) > 0 {
			errs = append(errs, newValidationError(ErrReturnWithSuccs,
				"return statements have no successors", at("succs")...))
		}

		switch {
		case s.Kind == ir.StmtInvoke && s.Invoke == nil:
			errs = append(errs, newValidationError(ErrMissingInvoke,
				"invoke statement requires an invoke expression", at()...))
		case s.Invoke != nil && s.Kind != ir.StmtInvoke && s.Kind != ir.StmtAssign:
			errs = append(errs, newValidationError(ErrUnexpectedInvoke,
				fmt.Sprintf("%s statement cannot carry an invoke expression", s.Kind), at("invoke")...))
		}

		if s.Def != nil && s.Def.Type == "" {
			errs = append(errs, newValidationError(ErrMissingValueType,
				"operand type is required", at("def", "type")...))
		}
		if s.Invoke != nil {
			errs = append(errs, validateInvoke(s.Invoke, at("invoke"))...)
		}
	}

	for ti, t := range body.Traps {
		if t.Begin > t.End || t.End > n {
			errs = append(errs, newValidationError(ErrInvalidTrapRange,
				fmt.Sprintf("trap range [%d,%d) invalid for %d statements", t.Begin, t.End, n),
				"methods", mi, "body", "traps", ti))
		}
		if t.Handler >= n {
			errs = append(errs, newValidationError(ErrHandlerOutOfRange,
				fmt.Sprintf("handler %d outside body of %d statements", t.Handler, n),
				"methods", mi, "body", "traps", ti, "handler"))
		}
	}
	return errs
}

func validateInvoke(inv *ir.InvokeExpr, path []any) []ValidationError {
	var errs []ValidationError
	at := func(rest ...any) []any {
		return append(append([]any{}, path...), rest...)
	}

	if !ir.ValidInvokeKinds[inv.Kind] {
		errs = append(errs, newValidationError(ErrUnknownInvokeKind,
			fmt.Sprintf("unknown invoke kind %q", inv.Kind), at("kind")...))
	}
	switch {
	case inv.IsStatic() && inv.Base != nil:
		errs = append(errs, newValidationError(ErrStaticReceiver,
			"static invocations have no base", at("base")...))
	case !inv.IsStatic() && inv.Base == nil:
		errs = append(errs, newValidationError(ErrMissingReceiver,
			"instance invocations require a base", at()...))
	}
	if inv.Base != nil && inv.Base.Type == "" {
		errs = append(errs, newValidationError(ErrMissingValueType,
			"operand type is required", at("base", "type")...))
	}
	for ai, a := range inv.Args {
		if a.Type == "" {
			errs = append(errs, newValidationError(ErrMissingValueType,
				"operand type is required", at("args", ai, "type")...))
		}
	}
	return errs
}
