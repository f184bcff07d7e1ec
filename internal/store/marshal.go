package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/pathminer/internal/ir"
)

// marshalStates converts monitor states to canonical JSON TEXT.
func marshalStates(states []int) (string, error) {
	if states == nil {
		states = []int{}
	}
	data, err := ir.MarshalCanonical(states)
	if err != nil {
		return "", fmt.Errorf("marshal states: %w", err)
	}
	return string(data), nil
}

// unmarshalStates parses JSON TEXT to monitor states.
func unmarshalStates(data string) ([]int, error) {
	if data == "" {
		return []int{}, nil
	}
	var states []int
	if err := json.Unmarshal([]byte(data), &states); err != nil {
		return nil, fmt.Errorf("unmarshal states: %w", err)
	}
	return states, nil
}

// marshalOptions converts run options to JSON TEXT. Map keys are sorted by
// encoding/json, so equal options give equal text.
func marshalOptions(opts map[string]any) (string, error) {
	if opts == nil {
		return "{}", nil
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(data), nil
}

// unmarshalOptions parses JSON TEXT to run options.
func unmarshalOptions(data string) (map[string]any, error) {
	opts := map[string]any{}
	if data == "" || data == "{}" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(data), &opts); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return opts, nil
}
