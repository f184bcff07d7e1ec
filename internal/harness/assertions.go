package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/pathminer/internal/engine"
	"github.com/roach88/pathminer/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the emitted sequences to help debug the failure.
type AssertionError struct {
	Type      string   // Assertion type for categorization
	Expected  string   // Human-readable expected outcome
	Actual    string   // Human-readable actual outcome
	Sequences []string // Plain-text lines of every emitted sequence
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nSequences:\n")
	for i, line := range e.Sequences {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
	}
	return buf.String()
}

func lines(seqs []engine.Sequence) []string {
	out := make([]string, len(seqs))
	for i, s := range seqs {
		out[i] = s.History.Text(false)
	}
	return out
}

// calls returns the call signatures of s, without branch events.
func calls(s engine.Sequence) []string {
	var out []string
	for _, e := range s.History.Sequence {
		if !e.IsBranch() {
			out = append(out, e.Call)
		}
	}
	return out
}

// assertSequenceCount checks the number of emitted sequences.
func assertSequenceCount(seqs []engine.Sequence, a Assertion) error {
	n := len(seqs)
	switch {
	case a.Count != nil && n != *a.Count:
		return &AssertionError{
			Type:      AssertSequenceCount,
			Expected:  fmt.Sprintf("%d sequences", *a.Count),
			Actual:    fmt.Sprintf("%d sequences", n),
			Sequences: lines(seqs),
		}
	case a.Min != nil && n < *a.Min:
		return &AssertionError{
			Type:      AssertSequenceCount,
			Expected:  fmt.Sprintf("at least %d sequences", *a.Min),
			Actual:    fmt.Sprintf("%d sequences", n),
			Sequences: lines(seqs),
		}
	}
	return nil
}

// assertContainsSequence checks that some sequence has exactly the expected
// calls, or exactly the expected plain-text line.
func assertContainsSequence(seqs []engine.Sequence, a Assertion) error {
	want := make([]string, len(a.Calls))
	for i, c := range a.Calls {
		want[i] = quoted(c)
	}

	for _, s := range seqs {
		if a.ObjectType != "" && s.Object.Type != a.ObjectType {
			continue
		}
		if a.Text != "" {
			if s.History.Text(false) == a.Text {
				return nil
			}
			continue
		}
		if slices.Equal(calls(s), want) {
			return nil
		}
	}

	expected := a.Text
	if expected == "" {
		expected = strings.Join(want, " ; ")
	}
	return &AssertionError{
		Type:      AssertContainsSequence,
		Expected:  fmt.Sprintf("a sequence %s", expected),
		Actual:    "not found",
		Sequences: lines(seqs),
	}
}

// assertNoSequenceWithCall checks that no sequence contains the call.
func assertNoSequenceWithCall(seqs []engine.Sequence, a Assertion) error {
	call := quoted(a.Call)
	for i, s := range seqs {
		if slices.Contains(calls(s), call) {
			return &AssertionError{
				Type:      AssertNoSequenceWithCall,
				Expected:  fmt.Sprintf("no sequence with %s", call),
				Actual:    fmt.Sprintf("found in sequence %d", i+1),
				Sequences: lines(seqs),
			}
		}
	}
	return nil
}

// assertStoredCount queries the run's stored sequences.
func assertStoredCount(actx *AssertionContext, seqs []engine.Sequence, a Assertion) error {
	if actx == nil || actx.Store == nil {
		return fmt.Errorf("stored_count requires a store")
	}

	filter := store.Filter{
		RunID:      actx.RunID,
		ObjectType: a.ObjectType,
	}
	if a.Method != "" {
		filter.Method = quoted(a.Method)
	}
	if a.Call != "" {
		filter.Call = quoted(a.Call)
	}

	stored, err := actx.Store.ReadSequences(actx.Ctx, filter.Predicate())
	if err != nil {
		return fmt.Errorf("stored_count: %w", err)
	}
	if len(stored) != *a.Count {
		return &AssertionError{
			Type:      AssertStoredCount,
			Expected:  fmt.Sprintf("%d stored sequences", *a.Count),
			Actual:    fmt.Sprintf("%d stored sequences", len(stored)),
			Sequences: lines(seqs),
		}
	}
	return nil
}

// AssertionContext carries what store-backed assertions need.
type AssertionContext struct {
	Store *store.Store
	RunID string
	Ctx   context.Context
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertSequenceCount:
			err = assertSequenceCount(result.Sequences, a)
		case AssertContainsSequence:
			err = assertContainsSequence(result.Sequences, a)
		case AssertNoSequenceWithCall:
			err = assertNoSequenceWithCall(result.Sequences, a)
		case AssertStoredCount:
			err = assertStoredCount(actx, result.Sequences, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}
