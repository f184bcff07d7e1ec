package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/pathminer/internal/engine"
	"github.com/roach88/pathminer/internal/ir"
)

// Run is one extraction.
type Run struct {
	ID         string
	Seed       uint64
	Options    map[string]any
	StartedSeq int64
}

// WriteRun inserts a run record. Writing an existing run ID is a no-op.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	optsJSON, err := marshalOptions(run.Options)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, options, started_seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		int64(run.Seed),
		optsJSON,
		run.StartedSeq,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteSequence stores one emitted sequence and its events in a single
// transaction. It returns the content-addressed ID and whether a new row
// was inserted; writing the same emitted sequence again leaves the stored
// row untouched.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteSequence(ctx context.Context, runID string, seq engine.Sequence) (id string, inserted bool, err error) {
	id, err = ir.SequenceID(runID, seq.Method, seq.Object, seq.Seq, seq.History)
	if err != nil {
		return "", false, fmt.Errorf("write sequence: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("write sequence: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO sequences
		(id, run_id, method, object_scope, object_repr, object_type, ancestor, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		runID,
		seq.Method,
		seq.Object.Scope,
		seq.Object.Repr,
		seq.Object.Type,
		seq.Ancestor,
		seq.Seq,
	)
	if err != nil {
		return "", false, fmt.Errorf("write sequence: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("write sequence: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return id, false, nil
	}

	if err := writeEvents(ctx, tx, id, seq.History); err != nil {
		return "", false, err
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("write sequence: commit: %w", err)
	}
	return id, true, nil
}

func writeEvents(ctx context.Context, tx *sql.Tx, sequenceID string, h ir.HistoryRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(sequence_id, idx, kind, call, states, location, branches)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for i, e := range h.Sequence {
		if e.IsBranch() {
			_, err = stmt.ExecContext(ctx, sequenceID, i, "branch", nil, nil, nil, *e.Branches)
		} else {
			var states string
			states, err = marshalStates(e.States)
			if err != nil {
				return fmt.Errorf("write events: %w", err)
			}
			_, err = stmt.ExecContext(ctx, sequenceID, i, "call", e.Call, states, nullString(e.Location), nil)
		}
		if err != nil {
			return fmt.Errorf("write events: event %d: %w", i, err)
		}
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Sink stores every emitted sequence under one run.
type Sink struct {
	store *Store
	runID string
}

// NewSink returns an engine.Sink writing to s under runID.
func NewSink(s *Store, runID string) *Sink {
	return &Sink{store: s, runID: runID}
}

// Emit implements engine.Sink.
func (k *Sink) Emit(ctx context.Context, seq engine.Sequence) error {
	_, _, err := k.store.WriteSequence(ctx, k.runID, seq)
	return err
}
