// Package queryir is a small query representation for reading stored
// sequences back out of a run database.
//
// Commands build a Select with a filter; a backend compiler (querysql)
// turns it into parameterized SQL. Keeping the filter abstract keeps the
// storage schema out of command code.
//
// Query and Predicate are sealed interfaces using the marker method
// pattern, so backends can switch over every node type:
//
//	switch p := pred.(type) {
//	case Equals:
//	case HasCall:
//	case And:
//	}
//
// The supported fragment is deliberately narrow:
//   - Select(from, filter, bindings) over one table
//   - Equals: column = literal
//   - HasCall: the sequence contains a call event for a signature
//   - And: conjunction
//
// Literals are typed (Text, Int) and never compared to NULL.
package queryir
