// Package trace records what gasguard is doing while it scans.
//
// Events are spans (begin/end pairs) and points, tagged with a scope:
//
//   - ScopeDriver: one CLI command
//   - ScopeFile: one scanned source
//   - ScopeRule: one rule applied to one contract
//   - ScopeMatch: individual findings
//
// The level decides which scopes are emitted: phase keeps driver and file
// events, detail adds rules, debug adds everything. Events go to a stream
// (stderr or a file, text or NDJSON), to an in-memory ring that is dumped
// when a command fails, or both.
//
// Tracers travel through the pipeline in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeFile, path, trace.CurrentSpan(ctx).SpanID)
//	defer span.End("")
package trace
