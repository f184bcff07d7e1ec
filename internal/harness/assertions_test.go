package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pathminer/internal/engine"
	"github.com/roach88/pathminer/internal/ir"
	"github.com/roach88/pathminer/internal/store"
)

const (
	initCall   = `"java.io.File: void <init>(java.lang.String)"`
	readCall   = `"java.io.File: boolean canRead()"`
	deleteCall = `"java.io.File: boolean delete()"`
)

func sequence(typ string, events ...ir.EventRecord) engine.Sequence {
	return engine.Sequence{
		Method:  `"app.Main: void onCreate(android.os.Bundle)"`,
		Object:  ir.ObjectID{Repr: "r1", Type: typ},
		History: ir.HistoryRecord{Sequence: events},
	}
}

func sampleSequences() []engine.Sequence {
	return []engine.Sequence{
		sequence("java.io.File",
			ir.CallRecord(initCall, []int{1}, ""),
			ir.BranchRecord(2),
			ir.CallRecord(readCall, []int{2}, ""),
		),
		sequence("java.io.File",
			ir.CallRecord(initCall, []int{1}, ""),
			ir.CallRecord(deleteCall, []int{3}, ""),
		),
	}
}

func intp(n int) *int { return &n }

func TestAssertSequenceCount(t *testing.T) {
	seqs := sampleSequences()

	tests := []struct {
		name string
		a    Assertion
		pass bool
	}{
		{"exact", Assertion{Count: intp(2)}, true},
		{"exact mismatch", Assertion{Count: intp(1)}, false},
		{"min met", Assertion{Min: intp(2)}, true},
		{"min zero", Assertion{Min: intp(0)}, true},
		{"min missed", Assertion{Min: intp(3)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertSequenceCount(seqs, tt.a)
			if tt.pass {
				assert.NoError(t, err)
				return
			}
			var aerr *AssertionError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, AssertSequenceCount, aerr.Type)
			assert.Equal(t, "2 sequences", aerr.Actual)
			assert.Len(t, aerr.Sequences, 2)
		})
	}
}

func TestAssertContainsSequence(t *testing.T) {
	seqs := sampleSequences()

	tests := []struct {
		name string
		a    Assertion
		pass bool
	}{
		{"calls ignore branches", Assertion{Calls: []string{initCall, readCall}}, true},
		{"unquoted calls", Assertion{Calls: []string{
			"java.io.File: void <init>(java.lang.String)",
			"java.io.File: boolean delete()",
		}}, true},
		{"prefix is not enough", Assertion{Calls: []string{initCall}}, false},
		{"order matters", Assertion{Calls: []string{deleteCall, initCall}}, false},
		{"text with branch", Assertion{Text: initCall + "[1][];2;" + readCall + "[2][];"}, true},
		{"text mismatch", Assertion{Text: initCall + "[1][];" + readCall + "[2][];"}, false},
		{"object type match", Assertion{ObjectType: "java.io.File", Calls: []string{initCall, deleteCall}}, true},
		{"object type mismatch", Assertion{ObjectType: "java.net.Socket", Calls: []string{initCall, deleteCall}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertContainsSequence(seqs, tt.a)
			if tt.pass {
				assert.NoError(t, err)
				return
			}
			var aerr *AssertionError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, "not found", aerr.Actual)
		})
	}
}

func TestAssertNoSequenceWithCall(t *testing.T) {
	seqs := sampleSequences()

	assert.NoError(t, assertNoSequenceWithCall(seqs, Assertion{Call: "java.io.File: boolean exists()"}))

	err := assertNoSequenceWithCall(seqs, Assertion{Call: "java.io.File: boolean delete()"})
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "found in sequence 2", aerr.Actual)
}

func TestAssertStoredCount(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.WriteRun(ctx, store.Run{ID: "run-1"}))
	sink := store.NewSink(st, "run-1")
	for i, s := range sampleSequences() {
		s.Seq = int64(i + 1)
		require.NoError(t, sink.Emit(ctx, s))
	}
	actx := &AssertionContext{Store: st, RunID: "run-1", Ctx: ctx}

	tests := []struct {
		name string
		a    Assertion
		pass bool
	}{
		{"all", Assertion{Count: intp(2)}, true},
		{"by call", Assertion{Call: "java.io.File: boolean canRead()", Count: intp(1)}, true},
		{"by method", Assertion{Method: "app.Main: void onCreate(android.os.Bundle)", Count: intp(2)}, true},
		{"by type", Assertion{ObjectType: "java.net.Socket", Count: intp(0)}, true},
		{"mismatch", Assertion{Call: initCall, Count: intp(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertStoredCount(actx, sampleSequences(), tt.a)
			if tt.pass {
				assert.NoError(t, err)
				return
			}
			var aerr *AssertionError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, "2 stored sequences", aerr.Actual)
		})
	}

	assert.Error(t, assertStoredCount(nil, nil, Assertion{Count: intp(0)}))
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Sequences = sampleSequences()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertSequenceCount, Count: intp(2)},
		{Type: AssertNoSequenceWithCall, Call: readCall},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 1:")
	assert.Contains(t, errs[0], "Assertion failed: no_sequence_with_call")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:      AssertSequenceCount,
		Expected:  "1 sequences",
		Actual:    "0 sequences",
		Sequences: []string{"a;b;"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: sequence_count")
	assert.Contains(t, msg, "Expected: 1 sequences")
	assert.Contains(t, msg, "Actual: 0 sequences")
	assert.Contains(t, msg, "[1] a;b;")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
