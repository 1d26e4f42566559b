// Package errs defines the error kinds from the error handling design:
// counted-and-continue kinds that degrade output locally, and the two kinds
// that propagate to process exit.
package errs

import "errors"

// Kind classifies an error for logging, metrics, and propagation policy.
type Kind string

const (
	// MalformedInput marks a tracer line that failed to parse. Counted, ignored.
	MalformedInput Kind = "malformed_input"
	// Backpressure marks an event dropped because the ingest queue was full.
	Backpressure Kind = "backpressure"
	// BaselineInsufficient marks a tick where fewer than 30 baseline samples
	// exist; triggers are suppressed during cold start.
	BaselineInsufficient Kind = "baseline_insufficient"
	// MetricUnavailable marks a failed working-set lookup for a pid; ram_pct
	// defaults to 0 and a flag is set on the snapshot.
	MetricUnavailable Kind = "metric_unavailable"
	// LlmUnavailable marks an RCA request that could not be completed.
	LlmUnavailable Kind = "llm_unavailable"
	// SchemaInvalid marks an LLM reply that failed to parse/validate into RcaReport.
	SchemaInvalid Kind = "schema_invalid"
	// TracerLost marks the ingest subprocess exiting unexpectedly.
	TracerLost Kind = "tracer_lost"
	// Fatal marks configuration or out-of-memory errors that terminate the process.
	Fatal Kind = "fatal"
)

// Error wraps an underlying cause with a Kind for classification by callers.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Propagates reports whether this Kind must terminate the process rather
// than be handled locally with a counter/degraded output (spec §7).
func (k Kind) Propagates() bool {
	return k == Fatal || k == TracerLost
}
