// Package trace records what the aves toolchain is doing: command
// boundaries, codec and execution phases, per-file verification and, at the
// most verbose level, engine steps.
//
// Enable tracing via command-line flags:
//
//	aves run --trace=- --trace-level=phase prog.avb
//
// Tracer implementations:
//
//   - Nop: disabled tracing
//   - StreamTracer: writes each event as it happens (file or stderr)
//   - RingTracer: keeps the last N events for a dump after a failure
//   - MultiTracer: fans out to several tracers
//
// Levels select scopes: phase shows commands and phases, detail adds files,
// debug adds engine steps.
//
// Tracers travel through the pipeline in a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePhase, "decode")
//	defer span.End("")
package trace
