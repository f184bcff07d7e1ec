// Package engine implements the path-sampling sequence extractor.
//
// For each walked method the extractor runs a fixed number of attempts. An
// attempt walks the method's unit graph from its entry, choosing uniformly
// among successors at every branch, and tracks the objects that platform
// calls are made on. Each tracked object owns clones of the monitor
// automata and an append-only history of call events annotated with the
// monitor states after the call.
//
// WALK:
//
// The walk is an explicit stack machine, not recursion. A call into an
// application method pushes a call context and continues at the callee's
// entry when interprocedural stepping is enabled. A return (or a statement
// with no successors) pops the context and resumes after the call; with an
// empty stack the walk is complete and the live histories are emitted.
//
// Re-observing the construction of a tracked receiver seals its history; a
// new object with the same identity starts from fresh monitors.
//
// BOUNDS:
//
// Every attempt is bounded three ways:
//   - wall-clock time (Options.Timeout), ending the attempt
//   - events recorded (Options.MaxEvents), ending the attempt
//   - statement visits (Options.MaxDepth), ending the attempt and the
//     remaining attempts of the method, since the walk is most likely stuck
//     in an infinite loop
//
// Randomness comes from a seeded math/rand/v2 source, so a run with a fixed
// seed and a fixed clock is reproducible.
package engine
