package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/pathminer/internal/ir"
	"github.com/roach88/pathminer/internal/queryir"
	"github.com/roach88/pathminer/internal/querysql"
)

// StoredSequence is a sequence read back from the store.
type StoredSequence struct {
	ID       string           `json:"id"`
	RunID    string           `json:"run_id"`
	Method   string           `json:"method"`
	Object   ir.ObjectID      `json:"object"`
	Ancestor string           `json:"ancestor"`
	Seq      int64            `json:"seq"`
	History  ir.HistoryRecord `json:"history"`
}

// Filter selects stored sequences. Empty fields match everything.
type Filter struct {
	RunID      string
	Method     string
	ObjectType string
	Call       string
}

// Predicate returns the query predicate for f, or nil for no filter.
func (f Filter) Predicate() queryir.Predicate {
	var preds []queryir.Predicate
	if f.RunID != "" {
		preds = append(preds, queryir.Equals{Field: "run_id", Value: queryir.Text(f.RunID)})
	}
	if f.Method != "" {
		preds = append(preds, queryir.Equals{Field: "method", Value: queryir.Text(f.Method)})
	}
	if f.ObjectType != "" {
		preds = append(preds, queryir.Equals{Field: "object_type", Value: queryir.Text(f.ObjectType)})
	}
	if f.Call != "" {
		preds = append(preds, queryir.HasCall{Signature: f.Call})
	}
	return queryir.AllOf(preds...)
}

var sequenceColumns = map[string]string{
	"ancestor":     "ancestor",
	"id":           "id",
	"method":       "method",
	"object_repr":  "object_repr",
	"object_scope": "object_scope",
	"object_type":  "object_type",
	"run_id":       "run_id",
	"seq":          "seq",
}

// ReadSequences returns the stored sequences matching filter (nil for all),
// ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadSequences(ctx context.Context, filter queryir.Predicate) ([]StoredSequence, error) {
	query := queryir.Select{From: "sequences", Filter: filter, Bindings: sequenceColumns}
	if res := queryir.Validate(query); !res.Valid {
		return nil, fmt.Errorf("read sequences: invalid filter: %v", res.Problems)
	}

	sqlText, params, err := querysql.NewSQLCompiler().Compile(query)
	if err != nil {
		return nil, fmt.Errorf("read sequences: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query sequences: %w", err)
	}

	sequences := []StoredSequence{}
	for rows.Next() {
		var seq StoredSequence
		// Columns in sorted binding order.
		if err := rows.Scan(
			&seq.Ancestor,
			&seq.ID,
			&seq.Method,
			&seq.Object.Repr,
			&seq.Object.Scope,
			&seq.Object.Type,
			&seq.RunID,
			&seq.Seq,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		sequences = append(sequences, seq)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate sequences: %w", err)
	}
	// The pool holds one connection; release it before reading events.
	rows.Close()

	for i := range sequences {
		h, err := s.readHistory(ctx, sequences[i].ID)
		if err != nil {
			return nil, err
		}
		sequences[i].History = h
	}
	return sequences, nil
}

// readHistory returns the events of one sequence in order.
func (s *Store) readHistory(ctx context.Context, sequenceID string) (ir.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, call, states, location, branches
		FROM events
		WHERE sequence_id = ?
		ORDER BY idx ASC
	`, sequenceID)
	if err != nil {
		return ir.HistoryRecord{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	h := ir.HistoryRecord{Sequence: []ir.EventRecord{}}
	for rows.Next() {
		var (
			kind     string
			call     sql.NullString
			states   sql.NullString
			location sql.NullString
			branches sql.NullInt64
		)
		if err := rows.Scan(&kind, &call, &states, &location, &branches); err != nil {
			return ir.HistoryRecord{}, fmt.Errorf("scan event: %w", err)
		}

		if kind == "branch" {
			h.Sequence = append(h.Sequence, ir.BranchRecord(int(branches.Int64)))
			continue
		}
		st, err := unmarshalStates(states.String)
		if err != nil {
			return ir.HistoryRecord{}, err
		}
		h.Sequence = append(h.Sequence, ir.CallRecord(call.String, st, location.String))
	}
	if err := rows.Err(); err != nil {
		return ir.HistoryRecord{}, fmt.Errorf("iterate events: %w", err)
	}
	return h, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seed, options, started_seq
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// ReadRuns returns every run, oldest first (UUIDv7 IDs sort by time).
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed, options, started_seq
		FROM runs
		ORDER BY id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		seed     int64
		optsJSON string
	)
	if err := row.Scan(&run.ID, &seed, &optsJSON, &run.StartedSeq); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Seed = uint64(seed)

	opts, err := unmarshalOptions(optsJSON)
	if err != nil {
		return Run{}, err
	}
	run.Options = opts
	return run, nil
}

// CountSequences returns the number of stored sequences of a run.
func (s *Store) CountSequences(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sequences WHERE run_id = ?", runID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sequences: %w", err)
	}
	return n, nil
}

// MaxSeq returns the highest stored seq number, or 0 for an empty store.
// A run appending to an existing database starts its clock there.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM sequences").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return n, nil
}
