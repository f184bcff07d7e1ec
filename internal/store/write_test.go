package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pathminer/internal/engine"
	"github.com/roach88/pathminer/internal/ir"
)

const (
	initCall   = `"java.io.File: void <init>(java.lang.String)"`
	readCall   = `"java.io.File: boolean canRead()"`
	deleteCall = `"java.io.File: boolean delete()"`
)

func testSequence(seq int64, method string, calls ...string) engine.Sequence {
	h := ir.HistoryRecord{}
	for i, c := range calls {
		h.Sequence = append(h.Sequence, ir.CallRecord(c, []int{i}, ""))
	}
	return engine.Sequence{
		Seq:      seq,
		Method:   method,
		Object:   ir.ObjectID{Scope: method, Repr: "r1", Type: "java.io.File"},
		Ancestor: "java.io.File",
		History:  h,
	}
}

func writeTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.WriteRun(context.Background(), Run{
		ID:      id,
		Seed:    42,
		Options: map[string]any{"max_seqs": 10, "unique_paths": true},
	}))
}

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := Run{ID: "run-1", Seed: 1<<63 + 5, Options: map[string]any{"unit_graph": "trap"}, StartedSeq: 7}
	require.NoError(t, s.WriteRun(ctx, run))
	require.NoError(t, s.WriteRun(ctx, Run{ID: "run-1", Seed: 99}), "duplicate run ID is ignored")

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)

	_, err = s.ReadRun(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestReadRuns_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"0192-b", "0192-a", "0191-z"} {
		writeTestRun(t, s, id)
	}

	runs, err := s.ReadRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "0191-z", runs[0].ID)
	assert.Equal(t, "0192-a", runs[1].ID)
	assert.Equal(t, "0192-b", runs[2].ID)
	assert.Equal(t, float64(10), runs[0].Options["max_seqs"])
}

func TestWriteSequence_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTestRun(t, s, "run-1")

	seq := testSequence(1, `"app.Main: void run()"`, initCall, readCall)

	id1, inserted, err := s.WriteSequence(ctx, "run-1", seq)
	require.NoError(t, err)
	assert.True(t, inserted)

	id2, inserted, err := s.WriteSequence(ctx, "run-1", seq)
	require.NoError(t, err)
	assert.False(t, inserted, "same sequence written twice")
	assert.Equal(t, id1, id2)

	n, err := s.CountSequences(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var events int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&events))
	assert.Equal(t, 2, events, "events are not duplicated")
}

func TestWriteSequence_KeepsEveryEmission(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTestRun(t, s, "run-1")

	first := testSequence(1, `"app.Main: void run()"`, initCall, readCall)
	other := testSequence(2, `"app.Main: void run()"`, initCall, readCall)
	other.Object.Repr = "r2"
	again := testSequence(3, `"app.Main: void run()"`, initCall, readCall)

	for _, seq := range []engine.Sequence{first, other, again} {
		_, inserted, err := s.WriteSequence(ctx, "run-1", seq)
		require.NoError(t, err)
		assert.True(t, inserted, "seq %d", seq.Seq)
	}

	n, err := s.CountSequences(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "equal histories are counted once per emission")

	seqs, err := s.ReadSequences(ctx, nil)
	require.NoError(t, err)
	require.Len(t, seqs, 3)
	assert.Equal(t, "r2", seqs[1].Object.Repr)
	assert.Equal(t, `"app.Main: void run()"`, seqs[1].Object.Scope)
}

func TestWriteSequence_DistinctRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTestRun(t, s, "run-1")
	writeTestRun(t, s, "run-2")

	seq := testSequence(1, `"app.Main: void run()"`, initCall, readCall)

	id1, _, err := s.WriteSequence(ctx, "run-1", seq)
	require.NoError(t, err)
	id2, inserted, err := s.WriteSequence(ctx, "run-2", seq)
	require.NoError(t, err)

	assert.True(t, inserted)
	assert.NotEqual(t, id1, id2)
}

func TestWriteSequence_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	_, _, err := s.WriteSequence(context.Background(), "nope",
		testSequence(1, `"app.Main: void run()"`, initCall, readCall))
	assert.Error(t, err, "foreign key on runs")

	n, err := s.CountSequences(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "failed write is rolled back")
}

func TestSink_Emit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTestRun(t, s, "run-1")

	var sink engine.Sink = NewSink(s, "run-1")
	require.NoError(t, sink.Emit(ctx, testSequence(1, `"app.Main: void run()"`, initCall, readCall)))
	require.NoError(t, sink.Emit(ctx, testSequence(2, `"app.Main: void run()"`, initCall, deleteCall)))

	n, err := s.CountSequences(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
