// Package harness runs extraction scenarios as executable tests.
//
// A scenario names a program description, a monitor file and extraction
// options, runs the extractor with a fixed seed and a frozen wall clock, and
// checks assertions over the emitted sequences.
//
// # Scenario Format
//
//	name: file_lifecycle
//	description: "A File is created, read and deleted"
//	program: programs/file_activity.cue
//	monitors: monitors/file.txt
//	seed: 42
//	unit_graph: brief
//	methods:
//	  - "app.Main: void onCreate(android.os.Bundle)"
//	options:
//	  max_sequences: 10
//	  types: [java.io.File]
//	assertions:
//	  - type: sequence_count
//	    count: 1
//	  - type: contains_sequence
//	    calls:
//	      - "java.io.File: void <init>(java.lang.String)"
//	      - "java.io.File: boolean delete()"
//	  - type: no_sequence_with_call
//	    call: "java.io.File: boolean canRead()"
//	  - type: stored_count
//	    object_type: java.io.File
//	    count: 1
//
// Program and monitor paths are relative to the scenario file. Methods, when
// given, are walked in order instead of the run's method selection.
//
// # Assertion Types
//
//   - sequence_count: exactly count (or at least min) sequences were emitted
//   - contains_sequence: some sequence has exactly these calls, or this text
//   - no_sequence_with_call: no sequence contains the call
//   - stored_count: the run's stored sequences matching the filter number count
//
// Signatures may be written with or without their surrounding quotes.
//
// # Deterministic Testing
//
// Every scenario runs with its own seed, a frozen wall clock and a fixed run
// ID against a fresh in-memory SQLite store, so golden snapshots are
// byte-identical across runs.
package harness
