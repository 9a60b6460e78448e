package observability

import "context"

// NoOpTracer is a tracer that does nothing. It is used when Langfuse
// is not configured or is explicitly disabled.
type NoOpTracer struct{}

func (n *NoOpTracer) StartTrace(_ string, _ TraceOptions) TraceContext {
	return TraceContext{}
}

func (n *NoOpTracer) RecordGeneration(_ TraceContext, _ GenerationInput) {}

func (n *NoOpTracer) RecordBackoff(_ TraceContext, _ int, _ int64, _ string) {}

func (n *NoOpTracer) CompleteTrace(_ TraceContext, _ CompleteOptions) {}

func (n *NoOpTracer) Flush(_ context.Context) error { return nil }

func (n *NoOpTracer) Stop(_ context.Context) error { return nil }
