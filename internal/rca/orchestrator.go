// Package rca implements C5, the RCA Orchestrator: it assembles evidence
// for each confirmed incident, invokes the external LLM collaborator with a
// bounded single-flight FIFO queue, validates the reply, and hands the
// resulting RcaReport to the incident store (spec §4.5).
package rca

import (
	"context"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/metrics"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
	"go.uber.org/zap"
)

// queueDepth bounds the number of incidents awaiting an LLM response (spec
// §4.5 "Queue depth is bounded (16)").
const queueDepth = 16

// job is one incident's pending RCA work.
type job struct {
	incident   model.SpikeIncident
	suspects   []model.Suspect
	events     []model.Event
	hostSeries []model.HostSample
	// confidence is C4's locally-derived ranking confidence (ranker.Rank's
	// second return value). It floors the final RcaReport.Confidence on a
	// successful LLM reply: a high-confidence local ranking must not be
	// overridable down to a lower LLM self-reported number (spec §9
	// frames confidence as "a deterministic floor derived from local
	// components").
	confidence float64
}

// Orchestrator runs task T5 (spec §5): I/O-bound, single-flight, FIFO.
type Orchestrator struct {
	client *Client
	log    *zap.Logger
	counts *metrics.Counters

	jobs chan job
	done chan struct{}

	onResult func(incidentID int64, report model.RcaReport)
}

// New builds an Orchestrator posting to client. Call Run in its own
// goroutine to start the single-flight worker.
func New(client *Client, log *zap.Logger, counts *metrics.Counters) *Orchestrator {
	return &Orchestrator{
		client: client,
		log:    log,
		counts: counts,
		jobs:   make(chan job, queueDepth),
		done:   make(chan struct{}),
	}
}

// OnResult registers the callback invoked once per incident with its final
// RcaReport (success or a populated fallback).
func (o *Orchestrator) OnResult(fn func(int64, model.RcaReport)) { o.onResult = fn }

// Submit enqueues an incident for RCA. If the queue is full, the oldest
// unsent job is dropped and its incident is resolved immediately with a
// backpressure fallback (spec §4.5 "overflow drops the oldest unsent
// incident's RCA attempt"). Submit is called from a single producer (the
// spike detector's confirm callback, spec §5 task T3), so the two-step
// non-blocking evict-then-send below carries the same single-producer
// invariant as the C1→C2 ingest queue.
func (o *Orchestrator) Submit(inc model.SpikeIncident, suspects []model.Suspect, confidence float64, events []model.Event, hostSeries []model.HostSample) {
	j := job{incident: inc, suspects: suspects, confidence: confidence, events: events, hostSeries: hostSeries}
	select {
	case o.jobs <- j:
		return
	default:
	}

	select {
	case dropped := <-o.jobs:
		if o.counts != nil {
			o.counts.RcaQueueOverflow.Add(1)
		}
		o.resolve(dropped.incident.ID, FallbackReport("backpressure", dropped.suspects, time.Now().UTC()))
	default:
	}
	o.jobs <- j
}

// Run drains the job queue one incident at a time (single-flight) until ctx
// is cancelled or Close is called.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			o.drainOnShutdown()
			return
		case <-o.done:
			return
		case j := <-o.jobs:
			o.process(ctx, j)
		}
	}
}

// Close stops Run after its current job, if any.
func (o *Orchestrator) Close() { close(o.done) }

// drainOnShutdown resolves any still-queued incidents with a shutdown
// fallback rather than leaving their rca field permanently nil (spec §5
// "Cancellation... the affected incident's RCA is recorded as
// <unavailable: shutdown>").
func (o *Orchestrator) drainOnShutdown() {
	for {
		select {
		case j := <-o.jobs:
			o.resolve(j.incident.ID, FallbackReport("shutdown", j.suspects, time.Now().UTC()))
		default:
			return
		}
	}
}

func (o *Orchestrator) process(ctx context.Context, j job) {
	if o.counts != nil {
		o.counts.LLMRequests.Add(1)
	}
	payload := BuildEvidence(j.incident, j.suspects, j.confidence, j.events, j.hostSeries)

	raw, err := o.client.Request(ctx, j.incident.ID, payload)
	now := time.Now().UTC()
	if err != nil {
		if o.log != nil {
			o.log.Warn("llm request failed", zap.Int64("incident_id", j.incident.ID), zap.Error(err))
		}
		if o.counts != nil {
			o.counts.LLMFailures.Add(1)
		}
		o.resolve(j.incident.ID, FallbackReport("llm_unavailable", j.suspects, now))
		return
	}

	report, err := ParseReply(raw, now)
	if err != nil {
		if o.counts != nil {
			o.counts.SchemaInvalidHits.Add(1)
		}
		if o.log != nil {
			o.log.Warn("llm reply failed schema validation", zap.Int64("incident_id", j.incident.ID), zap.Error(err))
		}
		o.resolve(j.incident.ID, SchemaInvalidFallback(j.suspects, now))
		return
	}

	// the locally-derived suspect list is always authoritative for ranked
	// ordering; the LLM only supplies narrative fields and may omit or
	// reorder suspects.
	report.RankedSuspects = model.ToRankedSuspects(j.suspects)
	if j.confidence > report.Confidence {
		report.Confidence = j.confidence
	}
	o.resolve(j.incident.ID, report)
}

func (o *Orchestrator) resolve(incidentID int64, report model.RcaReport) {
	if o.onResult != nil {
		o.onResult(incidentID, report)
	}
}
