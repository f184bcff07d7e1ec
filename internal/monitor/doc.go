// Package monitor implements typestate monitor automata.
//
// A monitor is a small finite automaton whose transitions are gated by
// predicates over observed call statements. Definitions are loaded from a
// line-oriented text format:
//
//	# comment
//	m#
//	0->1 call "java.io.File: void <init>(java.lang.String)"
//	1->2 argvalRE $1 "^http://.*"
//	2->0 exception !java.io.IOException
//
// Every automaton starts in state 0. Transition tables are immutable once
// parsed; per-object monitors are clones that copy the current state and
// share the table.
//
// Predicate kinds form a closed set (see Predicate). Equality predicates are
// parsed and round-trip but never enable.
package monitor
