package service

import "context"

// Tracer instruments a span of work. StartSpan returns a derived context and
// a completion callback that records the span's outcome.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attributes map[string]string) (context.Context, func(error))
}

type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, _ string, _ map[string]string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

// NoopTracer discards every span. It is the default when a kernel is
// constructed without an explicit Tracer.
var NoopTracer Tracer = noopTracer{}
