// Package output renders emitted sequences.
//
// Two formats are supported: a JSON document {"data": [...]} holding every
// history of the run, written when the writer is closed, and plain text with
// one line per history, written as sequences arrive. Both writers implement
// engine.Sink.
package output
