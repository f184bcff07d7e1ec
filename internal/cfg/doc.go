// Package cfg answers control-flow and class-hierarchy questions about a
// compiled program: method lookup, per-method unit graphs, application vs
// platform classification, superclass chains and source files.
//
// Two unit-graph modes exist. A brief graph has only the successors listed
// in the program description. A trap graph adds an exceptional edge from
// every statement inside a trap range to the trap's handler.
package cfg
