package engine

// Attempt outcomes reported to a Recorder.
const (
	OutcomeCompleted      = "completed"
	OutcomeDuplicatePath  = "duplicate_path"
	OutcomeTimeout        = "timeout"
	OutcomeTooLong        = "too_long"
	OutcomeDepthExhausted = "depth_exhausted"
)

// Recorder observes extraction progress. Implemented by the metrics package.
type Recorder interface {
	ObserveAttempt(outcome string)
	ObserveSequence(method string)
	ObserveMethod(method string, sequences, loc int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string) {}
func (nopRecorder) ObserveSequence(string) {}
func (nopRecorder) ObserveMethod(string, int, int) {}

// MethodStats summarizes the walk of one entry method.
type MethodStats struct {
	Method         string `json:"method"`
	Attempts       int    `json:"attempts"`
	Sequences      int    `json:"sequences"`
	Timeouts       int    `json:"timeouts"`
	TooLong        int    `json:"too_long"`
	DuplicatePaths int    `json:"duplicate_paths"`
	DepthExhausted bool   `json:"depth_exhausted"`
}

// Stats summarizes a run.
type Stats struct {
	Methods        int           `json:"methods"`
	Sequences      int           `json:"sequences"`
	LOC            int           `json:"loc"`
	Timeouts       int           `json:"timeouts"`
	TooLong        int           `json:"too_long"`
	DepthExhausted int           `json:"depth_exhausted"`
	PerMethod      []MethodStats `json:"per_method"`
}

func (s *Stats) add(m MethodStats) {
	s.Methods++
	s.Sequences += m.Sequences
	s.Timeouts += m.Timeouts
	s.TooLong += m.TooLong
	if m.DepthExhausted {
		s.DepthExhausted++
	}
	s.PerMethod = append(s.PerMethod, m)
}
