package engine

import (
	"context"

	"github.com/roach88/pathminer/internal/ir"
)

// Sequence is one emitted history with its provenance.
type Sequence struct {
	// Seq orders sequences within a run.
	Seq int64

	// Method is the quoted signature of the walked entry method.
	Method string

	// Object identifies the tracked receiver.
	Object ir.ObjectID

	// Ancestor is the class the sequence is attributed to.
	Ancestor string

	// History is the recorded event log.
	History ir.HistoryRecord
}

// Sink receives emitted sequences in emission order.
type Sink interface {
	Emit(ctx context.Context, s Sequence) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, s Sequence) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, s Sequence) error {
	return f(ctx, s)
}

// MultiSink emits to every sink in order, stopping at the first error.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(ctx context.Context, s Sequence) error {
	for _, sink := range m {
		if err := sink.Emit(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Collector is a Sink that keeps every sequence in memory.
type Collector struct {
	Sequences []Sequence
}

// Emit implements Sink.
func (c *Collector) Emit(_ context.Context, s Sequence) error {
	c.Sequences = append(c.Sequences, s)
	return nil
}
