package observability

import "context"

// Tracer records word-problem requests sent to the completion service.
//
// Trace hierarchy:
//
//	Solve request (Trace)
//	  ├── Attempt 0 (Generation)
//	  ├── Attempt 1 (Generation, after backoff)
//	  └── Backoff waits (Event)
type Tracer interface {
	StartTrace(requestID string, opts TraceOptions) TraceContext
	RecordGeneration(trace TraceContext, gen GenerationInput)
	RecordBackoff(trace TraceContext, attempt int, delayMs int64, reason string)
	CompleteTrace(trace TraceContext, opts CompleteOptions)
	Flush(ctx context.Context) error
	Stop(ctx context.Context) error
}

// TraceContext holds the context for an active solve request.
type TraceContext struct {
	TraceID   string
	RequestID string
	Metadata  map[string]string
}

// TraceOptions configures a new trace.
type TraceOptions struct {
	Model     string
	SessionID string
	Source    string // "cli", "tui" or "http"
}

// GenerationInput describes one call to the completion service.
type GenerationInput struct {
	Name       string
	Model      string
	Input      string // Prompt text
	Output     string // Cleaned expression, empty on failure
	Attempt    int
	Status     string // "completed" or "error"
	Error      string
	DurationMs int64
}

// CompleteOptions configures trace completion.
type CompleteOptions struct {
	Status   string // "completed" or "failed"
	Attempts int
}
