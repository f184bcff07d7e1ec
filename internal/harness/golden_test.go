package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{
		"file_lifecycle",
		"interprocedural",
		"reconstruction",
		"monitor_toggle",
	} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "%v", result.Errors)
		})
	}
}

func TestSnapshot_Shape(t *testing.T) {
	scenario := &Scenario{Name: "shape", Seed: 5}
	result := NewResult()
	result.Sequences = sampleSequences()
	result.Stats.Methods = 1
	result.Stats.Sequences = 2
	result.Stats.LOC = 9

	data, err := Snapshot(scenario, result)
	require.NoError(t, err)

	var decoded struct {
		ScenarioName string `json:"scenario_name"`
		Seed         int64  `json:"seed"`
		Sequences    []struct {
			Method     string            `json:"method"`
			ObjectType string            `json:"object_type"`
			Sequence   []json.RawMessage `json:"sequence"`
		} `json:"sequences"`
		Stats map[string]int `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "shape", decoded.ScenarioName)
	assert.Equal(t, int64(5), decoded.Seed)
	require.Len(t, decoded.Sequences, 2)
	assert.Equal(t, "java.io.File", decoded.Sequences[0].ObjectType)
	assert.Len(t, decoded.Sequences[0].Sequence, 3)
	assert.JSONEq(t, `{"branches":2}`, string(decoded.Sequences[0].Sequence[1]))
	assert.Equal(t, map[string]int{"methods": 1, "sequences": 2, "loc": 9}, decoded.Stats)

	assert.Contains(t, string(data), `<init>`)
	assert.NotContains(t, string(data), `\u003c`)
}

func TestSnapshot_Empty(t *testing.T) {
	data, err := Snapshot(&Scenario{Name: "empty"}, NewResult())
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"empty","seed":0,"sequences":[],"stats":{"loc":0,"methods":0,"sequences":0}}`,
		string(data))
}
