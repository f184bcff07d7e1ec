package queryir

import "fmt"

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each rule the query breaks.
	Problems []string
}

// Validate checks a query against the supported fragment:
//  1. no NULL literals
//  2. explicit bindings (no SELECT *)
//  3. HasCall names a signature
//  4. only node types of this package
//
// Validate is a pure function.
func Validate(query Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addProblem("select without a table")
	}
	if len(sel.Bindings) == 0 {
		v.addProblem("empty bindings (SELECT *) - list the columns to read")
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case HasCall:
		v.validateHasCall(pred)
	case *HasCall:
		v.validateHasCall(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	switch eq.Value.(type) {
	case nil, Null:
		v.addProblem("field '%s' compared to NULL", eq.Field)
	}
}

func (v *validator) validateHasCall(hc HasCall) {
	if hc.Signature == "" {
		v.addProblem("call filter without a signature")
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}
