package queryir

// Query is an abstract query. Sealed to this package.
type Query interface {
	queryNode()
}

// Predicate is a filter condition. Sealed to this package.
type Predicate interface {
	predicateNode()
}

// Value is a literal compared against a column. Sealed to this package.
type Value interface {
	valueNode()
}

// Text is a string literal.
type Text string

func (Text) valueNode() {}

// Int is an integer literal.
type Int int64

func (Int) valueNode() {}

// Null is the absent value. It is representable so that validation can
// reject it.
type Null struct{}

func (Null) valueNode() {}

// Select reads rows of one table.
//
//	Select{
//	  From:     "sequences",
//	  Filter:   And{Predicates: []Predicate{
//	    Equals{Field: "run_id", Value: Text("0190...")},
//	    HasCall{Signature: `"java.io.File: boolean delete()"`},
//	  }},
//	  Bindings: map[string]string{"id": "id", "method": "method"},
//	}
type Select struct {
	From     string            // table name
	Filter   Predicate         // nil = every row
	Bindings map[string]string // column -> result name
}

func (Select) queryNode() {}

// Equals is column = literal.
type Equals struct {
	Field string
	Value Value
}

func (Equals) predicateNode() {}

// HasCall holds for sequences with at least one call event on Signature.
type HasCall struct {
	Signature string
}

func (HasCall) predicateNode() {}

// And holds when every predicate holds. An empty And always holds.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// AllOf builds an And from the non-nil predicates. It returns nil when
// none remain and the single predicate when only one does.
func AllOf(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
