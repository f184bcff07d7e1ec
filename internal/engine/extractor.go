package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/roach88/pathminer/internal/cfg"
	"github.com/roach88/pathminer/internal/ir"
	"github.com/roach88/pathminer/internal/monitor"
)

// Extractor samples paths through method bodies and records, per tracked
// object, the calls made on it with the monitor states after each call.
//
// An Extractor is single-threaded. The path set, the location arena, the
// random source and the running totals persist across methods; everything
// else belongs to one attempt.
type Extractor struct {
	prog      cfg.Program
	templates []*monitor.Monitor
	opts      Options
	sink      Sink

	clock    WallClock
	seq      *Clock
	rng      *rand.Rand
	recorder Recorder

	paths     pathSet
	locations *locations
	walked    map[string]bool
	stats     Stats
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWallClock sets the clock used for attempt deadlines.
func WithWallClock(c WallClock) Option {
	return func(x *Extractor) {
		x.clock = c
	}
}

// WithSeed seeds the successor choice. Equal seeds give equal runs.
func WithSeed(seed uint64) Option {
	return func(x *Extractor) {
		x.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithRand sets the random source used for successor choice.
func WithRand(r *rand.Rand) Option {
	return func(x *Extractor) {
		x.rng = r
	}
}

// WithRecorder reports progress to r.
func WithRecorder(r Recorder) Option {
	return func(x *Extractor) {
		x.recorder = r
	}
}

// WithSeqClock sets the clock stamping emitted sequences.
func WithSeqClock(c *Clock) Option {
	return func(x *Extractor) {
		x.seq = c
	}
}

// New creates an Extractor. The monitors are templates: every tracked
// object gets its own clones. Invalid options are rejected.
func New(prog cfg.Program, monitors []*monitor.Monitor, opts Options, sink Sink, options ...Option) (*Extractor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.New("extractor requires a sink")
	}

	now := uint64(time.Now().UnixNano())
	x := &Extractor{
		prog:      prog,
		templates: monitors,
		opts:      opts,
		sink:      sink,
		clock:     SystemClock{},
		seq:       NewClock(),
		rng:       rand.New(rand.NewPCG(now, now)),
		recorder:  nopRecorder{},
		paths:     make(pathSet),
		locations: newLocations(prog),
		walked:    make(map[string]bool),
	}

	for _, opt := range options {
		opt(x)
	}

	return x, nil
}

// Stats returns the running totals.
func (x *Extractor) Stats() Stats {
	s := x.stats
	s.PerMethod = append([]MethodStats(nil), x.stats.PerMethod...)
	return s
}

// Run walks every selected method of the program.
//
// Attempt-level conditions (timeout, event ceiling, walk bound) are logged
// and counted. Defects, sink failures and context cancellation end the run.
func (x *Extractor) Run(ctx context.Context) (Stats, error) {
	if !IsRelevantApp(x.prog, x.opts.Types) {
		return x.Stats(), &RuntimeError{
			Code:    ErrCodeIrrelevantApp,
			Message: "irrelevant app: no tracked type is present in the program",
			Details: map[string]string{"types": fmt.Sprint(x.opts.Types)},
		}
	}

	methods := SelectMethods(x.prog, x.opts.EntryPoints)
	slog.Info("extraction starting",
		"methods", len(methods),
		"max_sequences", x.opts.MaxSequences,
		"interprocedural", x.opts.Interprocedural,
	)

	for _, m := range methods {
		if _, err := x.ExtractMethod(ctx, m); err != nil {
			return x.Stats(), err
		}
	}

	slog.Info("extraction finished",
		"methods", x.stats.Methods,
		"sequences", x.stats.Sequences,
		"loc", x.stats.LOC,
		"timeouts", x.stats.Timeouts,
		"too_long", x.stats.TooLong,
		"depth_exhausted", x.stats.DepthExhausted,
	)
	return x.Stats(), nil
}

// ExtractMethod runs up to MaxSequences attempts from the entry of m.
// Exhausting the walk bound abandons the remaining attempts for m.
func (x *Extractor) ExtractMethod(ctx context.Context, m ir.Method) (MethodStats, error) {
	sig := m.Signature()
	g, err := x.prog.Graph(m)
	if err != nil {
		return MethodStats{}, fmt.Errorf("unit graph for %s: %w", sig, err)
	}
	x.countLOC(g)

	slog.Debug("extracting sequences", "method", sig)

	ms := MethodStats{Method: sig}

attempts:
	for i := 0; i < x.opts.MaxSequences; i++ {
		ms.Attempts++
		w := x.newWalk(sig)
		err := w.run(ctx, g)
		ms.Sequences += w.emitted

		switch {
		case err == nil && w.duplicate:
			ms.DuplicatePaths++
			x.recorder.ObserveAttempt(OutcomeDuplicatePath)
		case err == nil:
			x.recorder.ObserveAttempt(OutcomeCompleted)
		case IsTimeoutError(err):
			ms.Timeouts++
			x.recorder.ObserveAttempt(OutcomeTimeout)
			slog.Warn("attempt timed out", "method", sig, "attempt", i, "error", err)
		case IsSequenceTooLongError(err):
			ms.TooLong++
			x.recorder.ObserveAttempt(OutcomeTooLong)
			slog.Warn("sequence too long", "method", sig, "attempt", i, "error", err)
		case IsDepthExhaustedError(err):
			ms.DepthExhausted = true
			x.recorder.ObserveAttempt(OutcomeDepthExhausted)
			slog.Warn("walk depth exhausted, most likely an infinite loop",
				"method", sig,
				"attempt", i,
				"stack_depth", len(w.stack),
			)
			break attempts
		default:
			return ms, err
		}
	}

	x.stats.add(ms)
	x.recorder.ObserveMethod(sig, ms.Sequences, g.Len())

	if ms.Sequences > 0 {
		slog.Info("method extracted",
			"method", sig,
			"sequences", ms.Sequences,
			"total_sequences", x.stats.Sequences,
			"total_loc", x.stats.LOC,
		)
	}
	return ms, nil
}

// countLOC adds the statements of g to the run total, once per method.
func (x *Extractor) countLOC(g cfg.Graph) {
	sig := g.Method().Signature()
	if x.walked[sig] {
		return
	}
	x.walked[sig] = true
	x.stats.LOC += g.Len()
}

func (x *Extractor) newWalk(method string) *walk {
	return &walk{
		x:      x,
		method: method,
		path:   NewPath(method),
		steps:  NewQuotaEnforcer(ErrCodeDepthExhausted, "walk depth", x.opts.MaxDepth),
		events: NewQuotaEnforcer(ErrCodeSequenceTooLong, "events per path", x.opts.MaxEvents),
		start:  x.clock.Now(),
	}
}

// callContext is an interprocedural frame: where to resume in the caller.
type callContext struct {
	graph cfg.Graph
	stmt  int
}

// walk is the state of one attempt. It is an explicit stack machine: the
// current graph and statement, the call-context stack, the chosen path and
// the live tracked objects.
type walk struct {
	x       *Extractor
	method  string
	path    *Path
	objects []*TypeStateObject
	stack   []callContext
	steps   *QuotaEnforcer
	events  *QuotaEnforcer
	start   time.Time

	duplicate bool
	emitted   int
}

func (w *walk) run(ctx context.Context, entry cfg.Graph) error {
	g, id, invokeCheck := entry, entry.Entry(), true

	for {
		if err := w.check(ctx); err != nil {
			return err
		}

		s := g.Stmt(id)

		if invokeCheck && s.Invoke != nil {
			var err error
			g, id, invokeCheck, err = w.handleInvoke(g, id, s)
			if err != nil {
				return err
			}
			continue
		}

		succs := g.Succs(id)
		if s.IsReturn() || len(succs) == 0 {
			if len(w.stack) == 0 {
				return w.terminal(ctx)
			}
			top := w.stack[len(w.stack)-1]
			w.stack = w.stack[:len(w.stack)-1]
			g, id, invokeCheck = top.graph, top.stmt, false
			continue
		}

		succ := w.choose(g, succs)
		if len(succs) > 1 && w.x.opts.PrintBranches {
			for _, obj := range w.objects {
				if obj.history.IsFinalized() {
					continue
				}
				if err := w.addEvent(obj, BranchEvent(len(succs))); err != nil {
					return err
				}
			}
		}
		id, invokeCheck = succ, true
	}
}

// check enforces cancellation, the attempt deadline and the walk bound.
func (w *walk) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if elapsed := w.x.clock.Now().Sub(w.start); elapsed > w.x.opts.Timeout {
		return NewTimeoutError(w.method, elapsed, w.x.opts.Timeout)
	}
	return w.steps.Check(w.method)
}

// handleInvoke dispatches a call statement and returns where the walk
// continues. A tracked call continues at the chosen successor; a call into
// an application method continues at the callee's entry when stepping is
// enabled; any other call re-visits the statement without dispatch.
func (w *walk) handleInvoke(g cfg.Graph, id int, s ir.Stmt) (cfg.Graph, int, bool, error) {
	succ, tracked, err := w.handleTracked(g, id, s)
	if err != nil {
		return nil, 0, false, err
	}
	if tracked {
		if succ < 0 {
			return g, id, false, nil
		}
		return g, succ, true, nil
	}

	callee := s.Invoke.Method
	if w.x.opts.Interprocedural && w.x.prog.IsApplicationMethod(callee) {
		m, _ := w.x.prog.Method(callee.Signature())
		cg, err := w.x.prog.Graph(m)
		if err != nil {
			return nil, 0, false, NewDefect(w.method, "application method without unit graph", err)
		}
		w.stack = append(w.stack, callContext{graph: g, stmt: id})
		w.x.countLOC(cg)
		return cg, cg.Entry(), true, nil
	}

	return g, id, false, nil
}

// handleTracked records a call on a tracked receiver. It reports false when
// the call is not a platform call on a reference-typed receiver, or when the
// receiver is new and its type is not tracked.
func (w *walk) handleTracked(g cfg.Graph, id int, s ir.Stmt) (int, bool, error) {
	inv := s.Invoke
	if w.x.prog.IsApplicationMethod(inv.Method) {
		return -1, false, nil
	}

	scope := g.Method().Signature()
	ctor := w.x.isConstructor(inv.Method)
	var recv ir.Value
	switch {
	case !inv.IsStatic() && inv.Base != nil && inv.Base.IsRefType():
		recv = *inv.Base
		if ctor {
			finalizePrevious(w.objects, recv.IDIn(scope))
		}
	case inv.IsStatic() && s.Kind == ir.StmtAssign && s.Def != nil && s.Def.IsRefType():
		recv = *s.Def
		finalizePrevious(w.objects, recv.IDIn(scope))
	default:
		return -1, false, nil
	}

	obj := findLive(w.objects, recv.IDIn(scope))
	if obj == nil {
		if !w.x.opts.tracks(recv.Type) {
			return -1, false, nil
		}
		obj = NewTypeStateObject(scope, recv, monitor.CloneAll(w.x.templates))
		w.objects = append(w.objects, obj)
	}

	succ := w.choose(g, g.Succs(id))
	exception := ""
	if succ >= 0 {
		exception = g.HandlerException(succ)
	}

	if err := monitor.PostAll(obj.monitors, monitor.NewStmtInstance(s, exception)); err != nil {
		return -1, false, NewDefect(w.method, "nondeterministic monitor", err)
	}

	location := ""
	if w.x.opts.PrintLocation {
		location = w.x.locations.of(g, id)
	}

	ev := CallEvent(inv.Method, inv.IsStatic(), monitor.States(obj.monitors), location)
	ev.constructor = ctor
	if err := w.addEvent(obj, ev); err != nil {
		return -1, false, err
	}
	return succ, true, nil
}

// isConstructor reports whether ref initializes its receiver: a method
// named <init>, or a described method flagged as a constructor.
func (x *Extractor) isConstructor(ref ir.MethodRef) bool {
	if m, ok := x.prog.Method(ref.Signature()); ok {
		return m.IsConstructor()
	}
	return ref.IsConstructor()
}

// choose picks a successor uniformly at random, recording multi-successor
// choices in the path. It returns -1 when there is no successor.
func (w *walk) choose(g cfg.Graph, succs []int) int {
	switch len(succs) {
	case 0:
		return -1
	case 1:
		return succs[0]
	}
	succ := succs[w.x.rng.IntN(len(succs))]
	w.path.Add(g, succ)
	return succ
}

func (w *walk) addEvent(obj *TypeStateObject, e Event) error {
	if err := obj.history.Add(e); err != nil {
		return NewDefect(w.method, "event for a sealed object", err)
	}
	return w.events.Check(w.method)
}

// terminal ends a complete walk: duplicate paths are dropped, and every
// tracked object with a valid history is emitted.
func (w *walk) terminal(ctx context.Context) error {
	if w.x.opts.UniquePaths && !w.x.paths.accept(w.path) {
		w.duplicate = true
		return nil
	}

	for _, obj := range w.objects {
		if !obj.HasValidHistory(w.x.opts.ValidateSequences) {
			continue
		}
		seq := Sequence{
			Seq:      w.x.seq.Next(),
			Method:   w.method,
			Object:   obj.ID(),
			Ancestor: obj.RelevantAncestor(w.x.prog, w.x.opts.Types),
			History:  obj.history.Record(),
		}
		if err := w.x.sink.Emit(ctx, seq); err != nil {
			return fmt.Errorf("emit sequence: %w", err)
		}
		w.emitted++
		w.x.recorder.ObserveSequence(w.method)
	}
	return nil
}
