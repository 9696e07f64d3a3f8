package trace

import "context"

// state is what a context carries: the tracer and the innermost span.
type state struct {
	tracer Tracer
	span   uint64
}

type stateKey struct{}

func stateOf(ctx context.Context) state {
	if ctx != nil {
		if st, ok := ctx.Value(stateKey{}).(state); ok {
			return st
		}
	}
	return state{tracer: Nop}
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return stateOf(ctx).tracer
}

// WithTracer attaches t to ctx. The enclosing span is kept.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	st := stateOf(ctx)
	st.tracer = t
	return context.WithValue(ctx, stateKey{}, st)
}

// SpanContext identifies the enclosing span.
type SpanContext struct {
	SpanID uint64
}

// CurrentSpan returns the enclosing span recorded in ctx.
func CurrentSpan(ctx context.Context) SpanContext {
	return SpanContext{SpanID: stateOf(ctx).span}
}

// WithSpan records s as the enclosing span of ctx. Inert spans leave ctx
// unchanged so children attach to the nearest live ancestor.
func WithSpan(ctx context.Context, s *Span) context.Context {
	id := s.ID()
	if id == 0 {
		return ctx
	}
	st := stateOf(ctx)
	st.span = id
	return context.WithValue(ctx, stateKey{}, st)
}
