package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pathminer/internal/cfg"
	"github.com/roach88/pathminer/internal/ir"
	"github.com/roach88/pathminer/internal/monitor"
	"github.com/roach88/pathminer/internal/testutil"
)

const (
	initSig   = "java.io.File: void <init>(java.lang.String)"
	readSig   = "java.io.File: boolean canRead()"
	deleteSig = "java.io.File: boolean delete()"
	createSig = "java.io.File: boolean createNewFile()"
	tempSig   = "java.io.File: java.io.File createTempFile(java.lang.String,java.lang.String)"
	runSig    = "app.Main: void run()"
	helperSig = "app.Main: void helper()"

	runScope    = `"app.Main: void run()"`
	helperScope = `"app.Main: void helper()"`
)

const fileMonitor = `m#
0->1 call "java.io.File: boolean canRead()"
1->2 call "java.io.File: boolean delete()"
`

var (
	self = testutil.Local("r0", "app.Main")
	file = testutil.Local("r1", "java.io.File")
)

func mainProgram(stmts ...ir.Stmt) *testutil.ProgramBuilder {
	return testutil.NewProgram().
		AppClass("app.Main", "java.lang.Object", "Main.java").
		LibClass("java.lang.Object", "").
		LibClass("java.io.File", "java.lang.Object").
		Method(runSig, false, stmts...)
}

// testOptions walks every method once, deterministically.
func testOptions() Options {
	opts := DefaultOptions()
	opts.EntryPoints = false
	opts.MaxSequences = 1
	return opts
}

type fixture struct {
	prog cfg.Program
	x    *Extractor
	out  *Collector
}

func newFixture(t *testing.T, b *testutil.ProgramBuilder, monitors string, opts Options, options ...Option) *fixture {
	t.Helper()
	return newFixtureMode(t, b, monitors, opts, cfg.ModeBrief, options...)
}

func newFixtureMode(t *testing.T, b *testutil.ProgramBuilder, monitors string, opts Options, mode cfg.Mode, options ...Option) *fixture {
	t.Helper()
	prog, err := cfg.New(b.Build(), mode)
	require.NoError(t, err)

	ms, err := monitor.ParseString(monitors)
	require.NoError(t, err)

	out := &Collector{}
	options = append([]Option{WithSeed(42)}, options...)
	x, err := New(prog, ms, opts, out, options...)
	require.NoError(t, err)
	return &fixture{prog: prog, x: x, out: out}
}

func (f *fixture) extract(t *testing.T, sig string) (MethodStats, error) {
	t.Helper()
	m, ok := f.prog.Method(ir.MustParseSignature(sig).Signature())
	require.True(t, ok, "method %s", sig)
	return f.x.ExtractMethod(context.Background(), m)
}

func (f *fixture) texts() []string {
	out := make([]string, len(f.out.Sequences))
	for i, s := range f.out.Sequences {
		out[i] = s.History.Text(false)
	}
	return out
}

func TestExtractor_StraightLine(t *testing.T) {
	f := newFixture(t, mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("/tmp/x")),
		testutil.Virtual(file, readSig, testutil.Succ(2)),
		testutil.Virtual(file, deleteSig, testutil.Succ(3)),
		testutil.Return(),
	), fileMonitor, testOptions())

	ms, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Sequences)

	require.Len(t, f.out.Sequences, 1)
	s := f.out.Sequences[0]
	assert.Equal(t, int64(1), s.Seq)
	assert.Equal(t, `"app.Main: void run()"`, s.Method)
	assert.Equal(t, file.IDIn(runScope), s.Object)
	assert.Equal(t, "java.io.File", s.Ancestor)
	assert.Equal(t,
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean canRead()"[1][];"java.io.File: boolean delete()"[2][];`,
		s.History.Text(false))
}

func TestExtractor_MultipleMonitors(t *testing.T) {
	f := newFixture(t, mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("/tmp/x")),
		testutil.Virtual(file, readSig, testutil.Succ(2)),
		testutil.Return(),
	), fileMonitor+`m#
0->5 arity =1
`, testOptions())

	_, err := f.extract(t, runSig)
	require.NoError(t, err)

	require.Len(t, f.out.Sequences, 1)
	events := f.out.Sequences[0].History.Sequence
	assert.Equal(t, []int{0, 5}, events[0].States)
	assert.Equal(t, []int{1, 5}, events[1].States)
}

func TestExtractor_ReconstructionSplitsHistories(t *testing.T) {
	f := newFixture(t, mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(file, readSig, testutil.Succ(2)),
		testutil.New(file, initSig, testutil.Succ(3), testutil.Str("b")),
		testutil.Virtual(file, deleteSig, testutil.Succ(4)),
		testutil.Return(),
	), fileMonitor, testOptions())

	_, err := f.extract(t, runSig)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean canRead()"[1][];`,
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean delete()"[0][];`,
	}, f.texts(), "the second object starts from fresh monitors")
	assert.Equal(t, f.out.Sequences[0].Object, f.out.Sequences[1].Object)
	assert.Less(t, f.out.Sequences[0].Seq, f.out.Sequences[1].Seq)
}

func TestExtractor_StaticFactory(t *testing.T) {
	def := testutil.Local("r2", "java.io.File")
	f := newFixture(t, mainProgram(
		testutil.Static(&def, tempSig, testutil.Succ(1), testutil.Str("a"), testutil.Str("b")),
		testutil.Virtual(def, readSig, testutil.Succ(2)),
		testutil.Return(),
	), fileMonitor, testOptions())

	_, err := f.extract(t, runSig)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`"java.io.File: java.io.File createTempFile(java.lang.String,java.lang.String)"[0][];"java.io.File: boolean canRead()"[1][];`,
	}, f.texts())
}

func TestExtractor_ValidationFilter(t *testing.T) {
	b := mainProgram(
		testutil.Virtual(file, readSig, testutil.Succ(1)),
		testutil.Virtual(file, deleteSig, testutil.Succ(2)),
		testutil.Return(),
	)

	f := newFixture(t, b, fileMonitor, testOptions())
	_, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.Empty(t, f.out.Sequences, "first call is neither a constructor nor static")

	opts := testOptions()
	opts.ValidateSequences = false
	f = newFixture(t, b, fileMonitor, opts)
	_, err = f.extract(t, runSig)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`"java.io.File: boolean canRead()"[1][];"java.io.File: boolean delete()"[2][];`,
	}, f.texts())
}

func TestExtractor_DescribedConstructor(t *testing.T) {
	const openSig = "java.io.File: void open(java.lang.String)"
	b := mainProgram(
		testutil.Virtual(file, openSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(file, readSig, testutil.Succ(2)),
		testutil.Virtual(file, openSig, testutil.Succ(3), testutil.Str("b")),
		testutil.Virtual(file, deleteSig, testutil.Succ(4)),
		testutil.Return(),
	).Method(openSig, false).Constructor()

	f := newFixture(t, b, fileMonitor, testOptions())
	_, err := f.extract(t, runSig)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`"java.io.File: void open(java.lang.String)"[0][];"java.io.File: boolean canRead()"[1][];`,
		`"java.io.File: void open(java.lang.String)"[0][];"java.io.File: boolean delete()"[0][];`,
	}, f.texts(), "a flagged constructor starts a new object and passes validation")
}

func TestExtractor_SingleEventDropped(t *testing.T) {
	f := newFixture(t, mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Return(),
	), fileMonitor, testOptions())

	ms, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.Equal(t, 0, ms.Sequences)
	assert.Empty(t, f.out.Sequences)
}

func TestExtractor_TypeAllowList(t *testing.T) {
	str := testutil.Local("r3", "java.lang.StringBuilder")
	opts := testOptions()
	opts.Types = []string{"java.io.File"}

	f := newFixture(t, mainProgram(
		testutil.New(str, "java.lang.StringBuilder: void <init>()", testutil.Succ(1)),
		testutil.New(file, initSig, testutil.Succ(2), testutil.Str("a")),
		testutil.Virtual(str, "java.lang.StringBuilder: java.lang.String toString()", testutil.Succ(3)),
		testutil.Virtual(file, readSig, testutil.Succ(4)),
		testutil.Return(),
	), fileMonitor, opts)

	_, err := f.extract(t, runSig)
	require.NoError(t, err)

	require.Len(t, f.out.Sequences, 1)
	assert.Equal(t, "java.io.File", f.out.Sequences[0].Object.Type)
}

func TestExtractor_NonReferenceReceiverIgnored(t *testing.T) {
	arr := testutil.Local("r4", "java.lang.Object[]")
	f := newFixture(t, mainProgram(
		testutil.New(arr, "java.lang.Object[]: void <init>()", testutil.Succ(1)),
		testutil.Virtual(arr, "java.lang.Object[]: java.lang.Object clone()", testutil.Succ(2)),
		testutil.Return(),
	), fileMonitor, testOptions())

	_, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.Empty(t, f.out.Sequences)
}

func interproceduralProgram() *testutil.ProgramBuilder {
	other := testutil.Local("r9", "java.io.File")
	return mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(self, helperSig, testutil.Succ(2)),
		testutil.Virtual(file, deleteSig, testutil.Succ(3)),
		testutil.Return(),
	).Method(helperSig, false,
		testutil.New(other, initSig, testutil.Succ(1), testutil.Str("b")),
		testutil.Virtual(other, readSig, testutil.Succ(2)),
		testutil.Return(),
	)
}

func TestExtractor_ApplicationCallIsTransparent(t *testing.T) {
	f := newFixture(t, interproceduralProgram(), fileMonitor, testOptions())

	_, err := f.extract(t, runSig)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean delete()"[0][];`,
	}, f.texts(), "the call on this is not recorded and the callee is not entered")
	assert.Equal(t, 4, f.x.Stats().LOC)
}

func TestExtractor_Interprocedural(t *testing.T) {
	opts := testOptions()
	opts.Interprocedural = true
	f := newFixture(t, interproceduralProgram(), fileMonitor, opts)

	_, err := f.extract(t, runSig)
	require.NoError(t, err)

	require.Len(t, f.out.Sequences, 2)
	assert.Equal(t, "r1", f.out.Sequences[0].Object.Repr)
	assert.Equal(t, "r9", f.out.Sequences[1].Object.Repr)
	assert.Equal(t,
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean canRead()"[1][];`,
		f.out.Sequences[1].History.Text(false))
	assert.Equal(t, `"app.Main: void run()"`, f.out.Sequences[1].Method, "attributed to the entry method")
	assert.Equal(t, 7, f.x.Stats().LOC, "callee statements count once")
}

func TestExtractor_InterproceduralLocalsDoNotMerge(t *testing.T) {
	opts := testOptions()
	opts.Interprocedural = true
	f := newFixture(t, mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(file, readSig, testutil.Succ(2)),
		testutil.Virtual(self, helperSig, testutil.Succ(3)),
		testutil.Virtual(file, deleteSig, testutil.Succ(4)),
		testutil.Return(),
	).Method(helperSig, false,
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("b")),
		testutil.Virtual(file, readSig, testutil.Succ(2)),
		testutil.Return(),
	), fileMonitor, opts)

	_, err := f.extract(t, runSig)
	require.NoError(t, err)

	require.Len(t, f.out.Sequences, 2)
	caller, callee := f.out.Sequences[0], f.out.Sequences[1]

	assert.Equal(t, file.IDIn(runScope), caller.Object)
	assert.Equal(t,
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean canRead()"[1][];"java.io.File: boolean delete()"[2][];`,
		caller.History.Text(false))

	assert.Equal(t, file.IDIn(helperScope), callee.Object)
	assert.Equal(t,
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean canRead()"[1][];`,
		callee.History.Text(false))
}

func TestExtractor_UnboundedRecursionExhaustsDepth(t *testing.T) {
	opts := testOptions()
	opts.Interprocedural = true
	opts.MaxSequences = 5
	opts.MaxDepth = 200

	f := newFixture(t, mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(self, runSig, testutil.Succ(2)),
		testutil.Return(),
	), fileMonitor, opts)

	ms, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.True(t, ms.DepthExhausted)
	assert.Equal(t, 1, ms.Attempts, "remaining attempts are abandoned")
	assert.Empty(t, f.out.Sequences)
}

func TestExtractor_InfiniteLoopExhaustsDepth(t *testing.T) {
	opts := testOptions()
	opts.MaxSequences = 5
	opts.MaxDepth = 50

	f := newFixture(t, mainProgram(testutil.Goto(0)), fileMonitor, opts)

	ms, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.True(t, ms.DepthExhausted)
	assert.Equal(t, 1, ms.Attempts)
	assert.Equal(t, 1, f.x.Stats().DepthExhausted)
}

func TestExtractor_SequenceTooLong(t *testing.T) {
	opts := testOptions()
	opts.MaxSequences = 3
	opts.MaxEvents = 5

	f := newFixture(t, mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(file, readSig, testutil.Succ(1)),
	), fileMonitor, opts)

	ms, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.Equal(t, 3, ms.Attempts)
	assert.Equal(t, 3, ms.TooLong)
	assert.Equal(t, 0, ms.Sequences)
	assert.Empty(t, f.out.Sequences, "nothing is emitted from a failed attempt")
}

func TestExtractor_DefaultEventCeiling(t *testing.T) {
	opts := testOptions()
	require.Equal(t, DefaultMaxEvents, opts.MaxEvents)
	require.Greater(t, opts.MaxDepth, DefaultMaxEvents+1, "ceiling is reached before the depth bound")

	f := newFixture(t, mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(file, readSig, testutil.Succ(1)),
	), fileMonitor, opts, WithWallClock(testutil.NewManualClock()))

	ms, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Attempts)
	assert.Equal(t, 1, ms.TooLong)
	assert.False(t, ms.DepthExhausted)
	assert.Empty(t, f.out.Sequences)
}

func TestExtractor_Timeout(t *testing.T) {
	opts := testOptions()
	opts.MaxSequences = 2
	opts.Timeout = time.Second

	f := newFixture(t, mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(file, readSig, testutil.Succ(2)),
		testutil.Virtual(file, deleteSig, testutil.Succ(3)),
		testutil.Return(),
	), fileMonitor, opts, WithWallClock(testutil.NewSteppingClock(time.Second)))

	ms, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.Equal(t, 2, ms.Timeouts)
	assert.Empty(t, f.out.Sequences)
	assert.Equal(t, 2, f.x.Stats().Timeouts)
}

func TestExtractor_UniquePaths(t *testing.T) {
	b := mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(file, readSig, testutil.Succ(2)),
		testutil.Return(),
	)

	opts := testOptions()
	opts.MaxSequences = 3
	f := newFixture(t, b, fileMonitor, opts)
	ms, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Sequences)
	assert.Equal(t, 2, ms.DuplicatePaths)

	opts.UniquePaths = false
	f = newFixture(t, b, fileMonitor, opts)
	ms, err = f.extract(t, runSig)
	require.NoError(t, err)
	assert.Equal(t, 3, ms.Sequences)
	assert.Equal(t, 0, ms.DuplicatePaths)
}

func branchProgram() *testutil.ProgramBuilder {
	return mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.If(2, 3),
		testutil.Virtual(file, readSig, testutil.Succ(4)),
		testutil.Virtual(file, deleteSig, testutil.Succ(4)),
		testutil.Return(),
	)
}

func TestExtractor_BranchesCoverBothPaths(t *testing.T) {
	opts := testOptions()
	opts.MaxSequences = 40

	f := newFixture(t, branchProgram(), fileMonitor, opts)
	ms, err := f.extract(t, runSig)
	require.NoError(t, err)

	assert.Equal(t, 2, ms.Sequences)
	assert.Equal(t, 38, ms.DuplicatePaths)
	assert.ElementsMatch(t, []string{
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean canRead()"[1][];`,
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean delete()"[0][];`,
	}, f.texts())
}

func TestExtractor_BranchEvents(t *testing.T) {
	opts := testOptions()
	opts.PrintBranches = true

	f := newFixture(t, branchProgram(), fileMonitor, opts)
	_, err := f.extract(t, runSig)
	require.NoError(t, err)

	require.Len(t, f.out.Sequences, 1)
	events := f.out.Sequences[0].History.Sequence
	require.Len(t, events, 3)
	assert.False(t, events[0].IsBranch())
	require.True(t, events[1].IsBranch())
	assert.Equal(t, 2, *events[1].Branches)
	assert.False(t, events[2].IsBranch())
}

func TestExtractor_BranchEventsCountTowardsCeiling(t *testing.T) {
	opts := testOptions()
	opts.PrintBranches = true
	opts.MaxEvents = 2

	f := newFixture(t, branchProgram(), fileMonitor, opts)
	ms, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.Equal(t, 1, ms.TooLong)
}

func TestExtractor_Locations(t *testing.T) {
	opts := testOptions()
	opts.PrintLocation = true

	f := newFixture(t, mainProgram(
		testutil.WithLine(testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")), 10),
		testutil.Virtual(file, readSig, testutil.Succ(2)),
		testutil.Return(),
	), fileMonitor, opts)

	_, err := f.extract(t, runSig)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`"java.io.File: void <init>(java.lang.String)"[0][Main.java@10];"java.io.File: boolean canRead()"[1][LOC0];`,
	}, f.texts())
}

func TestExtractor_ExceptionalSuccessor(t *testing.T) {
	opts := testOptions()
	opts.MaxSequences = 40

	b := mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(file, createSig, testutil.Succ(2)),
		testutil.Return(),
		testutil.Virtual(file, deleteSig, testutil.Succ(4)),
		testutil.Return(),
	).Trap(1, 2, 3, "java.io.IOException")

	f := newFixtureMode(t, b, `m#
0->1 exception java.io.IOException
`, opts, cfg.ModeTrap)

	_, err := f.extract(t, runSig)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean createNewFile()"[0][];`,
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean createNewFile()"[1][];"java.io.File: boolean delete()"[1][];`,
	}, f.texts())
}

func TestExtractor_UncaughtThrowEndsPath(t *testing.T) {
	f := newFixture(t, mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(file, readSig, testutil.Succ(2)),
		testutil.Throw(),
		testutil.Virtual(file, deleteSig, testutil.Succ(4)),
		testutil.Return(),
	), fileMonitor, testOptions())

	_, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`"java.io.File: void <init>(java.lang.String)"[0][];"java.io.File: boolean canRead()"[1][];`,
	}, f.texts())
}

func TestExtractor_BriefGraphIgnoresHandlers(t *testing.T) {
	opts := testOptions()
	opts.MaxSequences = 10

	b := mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(file, createSig, testutil.Succ(2)),
		testutil.Return(),
		testutil.Virtual(file, deleteSig, testutil.Succ(4)),
		testutil.Return(),
	).Trap(1, 2, 3, "java.io.IOException")

	f := newFixture(t, b, fileMonitor, opts)
	ms, err := f.extract(t, runSig)
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Sequences)
}

func TestExtractor_NondeterministicMonitor(t *testing.T) {
	f := newFixture(t, mainProgram(
		testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
		testutil.Virtual(file, readSig, testutil.Succ(2)),
		testutil.Return(),
	), `m#
0->1 call "java.io.File: boolean canRead()"
0->2 arity =0
`, testOptions())

	_, err := f.extract(t, runSig)
	require.Error(t, err)
	assert.True(t, IsDefect(err))
	assert.True(t, monitor.IsNondeterminismError(err))
}

func TestExtractor_Run(t *testing.T) {
	opts := testOptions()
	opts.Types = []string{"java.io.File"}

	f := newFixture(t, interproceduralProgram(), fileMonitor, opts)
	stats, err := f.x.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Methods)
	assert.Equal(t, 2, stats.Sequences)
	assert.Equal(t, 7, stats.LOC)
	require.Len(t, stats.PerMethod, 2)
	assert.Equal(t, `"app.Main: void helper()"`, stats.PerMethod[1].Method)
}

func TestExtractor_RunIrrelevantApp(t *testing.T) {
	opts := testOptions()
	opts.Types = []string{"java.net.URL"}

	f := newFixture(t, interproceduralProgram(), fileMonitor, opts)
	_, err := f.x.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsIrrelevantAppError(err))
	assert.Empty(t, f.out.Sequences)
}

func TestExtractor_RunEntryPointsOnly(t *testing.T) {
	opts := testOptions()
	opts.EntryPoints = true

	b := testutil.NewProgram().
		LibClass("android.app.Activity", "").
		LibClass("java.io.File", "").
		AppClass("app.Main", "android.app.Activity", "Main.java").
		Method("app.Main: void onCreate(android.os.Bundle)", false,
			testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
			testutil.Virtual(file, readSig, testutil.Succ(2)),
			testutil.Return(),
		).
		Method(helperSig, false,
			testutil.New(file, initSig, testutil.Succ(1), testutil.Str("a")),
			testutil.Virtual(file, deleteSig, testutil.Succ(2)),
			testutil.Return(),
		)

	f := newFixture(t, b, fileMonitor, opts)
	stats, err := f.x.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Methods)
	require.Len(t, f.out.Sequences, 1)
	assert.Equal(t, `"app.Main: void onCreate(android.os.Bundle)"`, f.out.Sequences[0].Method)
}

func TestExtractor_SinkErrorIsFatal(t *testing.T) {
	prog, err := cfg.New(branchProgram().Build(), cfg.ModeBrief)
	require.NoError(t, err)
	ms, err := monitor.ParseString(fileMonitor)
	require.NoError(t, err)

	boom := errors.New("disk full")
	sink := SinkFunc(func(context.Context, Sequence) error { return boom })

	x, err := New(prog, ms, testOptions(), sink, WithSeed(1))
	require.NoError(t, err)

	_, err = x.Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestExtractor_ContextCanceled(t *testing.T) {
	f := newFixture(t, branchProgram(), fileMonitor, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.x.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtractor_SameSeedSameRun(t *testing.T) {
	opts := testOptions()
	opts.MaxSequences = 10
	opts.UniquePaths = false
	opts.PrintBranches = true

	a := newFixture(t, branchProgram(), fileMonitor, opts, WithSeed(7))
	b := newFixture(t, branchProgram(), fileMonitor, opts, WithSeed(7))

	_, err := a.x.Run(context.Background())
	require.NoError(t, err)
	_, err = b.x.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a.texts(), b.texts())
	assert.Len(t, a.out.Sequences, 10)
}

func TestExtractor_WithRandMatchesSeed(t *testing.T) {
	opts := testOptions()
	opts.MaxSequences = 10
	opts.UniquePaths = false
	opts.PrintBranches = true

	seeded := newFixture(t, branchProgram(), fileMonitor, opts, WithSeed(9))
	custom := newFixture(t, branchProgram(), fileMonitor, opts, WithRand(rand.New(rand.NewPCG(9, 9))))

	_, err := seeded.x.Run(context.Background())
	require.NoError(t, err)
	_, err = custom.x.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, seeded.texts(), custom.texts())
}

func TestExtractor_SeqClockOffset(t *testing.T) {
	f := newFixture(t, branchProgram(), fileMonitor, testOptions(), WithSeqClock(NewClockAt(100)))

	_, err := f.x.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, f.out.Sequences, 1)
	assert.Equal(t, int64(101), f.out.Sequences[0].Seq)
}

func TestExtractor_Recorder(t *testing.T) {
	opts := testOptions()
	opts.MaxSequences = 3

	rec := &countingRecorder{attempts: map[string]int{}}
	f := newFixture(t, branchProgram(), fileMonitor, opts, WithRecorder(rec))

	_, err := f.x.Run(context.Background())
	require.NoError(t, err)

	total := 0
	for _, n := range rec.attempts {
		total += n
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, len(f.out.Sequences), rec.sequences)
	assert.Equal(t, 1, rec.methods)
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	prog, err := cfg.New(branchProgram().Build(), cfg.ModeBrief)
	require.NoError(t, err)

	opts := testOptions()
	opts.MaxEvents = 0
	_, err = New(prog, nil, opts, &Collector{})
	require.Error(t, err)

	_, err = New(prog, nil, testOptions(), nil)
	require.Error(t, err)
}

type countingRecorder struct {
	attempts  map[string]int
	sequences int
	methods   int
}

func (r *countingRecorder) ObserveAttempt(outcome string) { r.attempts[outcome]++ }

func (r *countingRecorder) ObserveSequence(string) { r.sequences++ }

func (r *countingRecorder) ObserveMethod(string, int, int) { r.methods++ }
