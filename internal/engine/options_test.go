package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Defaults(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, 100, opts.MaxSequences)
	assert.Equal(t, 1000, opts.MaxEvents)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.True(t, opts.EntryPoints)
	assert.True(t, opts.UniquePaths)
	assert.True(t, opts.ValidateSequences)
	assert.False(t, opts.Interprocedural)
	assert.False(t, opts.PrintBranches)
	assert.False(t, opts.PrintLocation)
	require.NoError(t, opts.Validate())
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		field  string
	}{
		{"zero sequences", func(o *Options) { o.MaxSequences = 0 }, "MaxSequences"},
		{"negative events", func(o *Options) { o.MaxEvents = -1 }, "MaxEvents"},
		{"zero depth", func(o *Options) { o.MaxDepth = 0 }, "MaxDepth"},
		{"zero timeout", func(o *Options) { o.Timeout = 0 }, "Timeout"},
		{"empty type", func(o *Options) { o.Types = []string{"java.io.File", ""} }, "Types[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestOptions_Tracks(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.tracks("anything.At.All"))

	opts.Types = []string{"java.io.File"}
	assert.True(t, opts.tracks("java.io.File"))
	assert.False(t, opts.tracks("java.io.FileInputStream"), "exact match only")
}

func TestOptions_Fields(t *testing.T) {
	opts := DefaultOptions()
	opts.Types = []string{"java.io.File"}

	fields := opts.Fields()
	assert.Equal(t, 100, fields["max_sequences"])
	assert.Equal(t, "5s", fields["timeout"])
	assert.Equal(t, true, fields["unique_paths"])
	assert.Equal(t, []string{"java.io.File"}, fields["types"])

	assert.Equal(t, []string{}, DefaultOptions().Fields()["types"])
}
