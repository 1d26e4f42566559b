// Package metrics holds the process-wide atomic counters (design note §9:
// "an atomic counters struct, monotonic increments only. No mutable globals
// otherwise"). One Counters value is created at startup and shared by
// reference; every field is only ever incremented.
package metrics

import "sync/atomic"

// Counters is safe for concurrent increment and read from any goroutine.
type Counters struct {
	MalformedLines     atomic.Int64
	BackpressureDrops  atomic.Int64
	OutOfOrderDropped  atomic.Int64
	RAMUnavailableHits atomic.Int64
	LLMRequests        atomic.Int64
	LLMRetries         atomic.Int64
	LLMFailures        atomic.Int64
	SchemaInvalidHits  atomic.Int64
	IncidentsCreated   atomic.Int64
	RcaQueueOverflow   atomic.Int64
	TracerRestarts     atomic.Int64
}

// New returns a freshly zeroed Counters.
func New() *Counters { return &Counters{} }

// Snapshot is a point-in-time copy of all counter values, suitable for
// inclusion in capabilities/diagnostics output.
type Snapshot struct {
	MalformedLines     int64 `json:"malformed_lines"`
	BackpressureDrops  int64 `json:"backpressure_drops"`
	OutOfOrderDropped  int64 `json:"out_of_order_dropped"`
	RAMUnavailableHits int64 `json:"ram_unavailable_hits"`
	LLMRequests        int64 `json:"llm_requests"`
	LLMRetries         int64 `json:"llm_retries"`
	LLMFailures        int64 `json:"llm_failures"`
	SchemaInvalidHits  int64 `json:"schema_invalid_hits"`
	IncidentsCreated   int64 `json:"incidents_created"`
	RcaQueueOverflow   int64 `json:"rca_queue_overflow"`
	TracerRestarts     int64 `json:"tracer_restarts"`
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		MalformedLines:     c.MalformedLines.Load(),
		BackpressureDrops:  c.BackpressureDrops.Load(),
		OutOfOrderDropped:  c.OutOfOrderDropped.Load(),
		RAMUnavailableHits: c.RAMUnavailableHits.Load(),
		LLMRequests:        c.LLMRequests.Load(),
		LLMRetries:         c.LLMRetries.Load(),
		LLMFailures:        c.LLMFailures.Load(),
		SchemaInvalidHits:  c.SchemaInvalidHits.Load(),
		IncidentsCreated:   c.IncidentsCreated.Load(),
		RcaQueueOverflow:   c.RcaQueueOverflow.Load(),
		TracerRestarts:     c.TracerRestarts.Load(),
	}
}
