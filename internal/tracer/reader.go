// Package tracer implements C1, the Event Source: it opens a stream from
// the external kernel tracer, parses line-delimited JSON records, normalizes
// them into model.Event, and publishes them to C2 over a bounded queue
// without ever blocking on a full queue (spec §4.1).
package tracer

import (
	"context"
	"io"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/metrics"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
	"go.uber.org/zap"
)

// slackBound is how far back in wall time an incoming event may fall behind
// the last accepted event before it is dropped as out-of-order (spec §3
// invariant: "wall timestamp is monotonically non-decreasing per source
// after normalization (out-of-order events past a slack bound are
// dropped)").
const slackBound = 2 * time.Second

// Reader is task T1 (spec §5): it owns the stream, reads one line at a
// time, and is the sole writer to the output Queue.
type Reader struct {
	source Source
	queue  *Queue
	log    *zap.Logger
	counts *metrics.Counters

	start time.Time // process start, for RecvNanos
}

// NewReader builds a Reader. start should be the process start time, used
// as the epoch for monotonic receive timestamps.
func NewReader(source Source, queue *Queue, log *zap.Logger, counts *metrics.Counters, start time.Time) *Reader {
	return &Reader{source: source, queue: queue, log: log, counts: counts, start: start}
}

// Run opens the stream and reads until ctx is cancelled or the stream ends.
// On cancellation it finishes the current line and returns. It never blocks
// the caller indefinitely: Queue.Publish never blocks, and the only
// blocking call here is the line read itself, which Close() on the
// underlying stream unblocks.
//
// Run does not close the output queue: a live tracer stream ending is the
// TracerLost condition (spec.md:189), which RunSupervised handles by
// reopening the source (calling Run again) rather than tearing down C2's
// queue. Only the final caller, once it is done restarting, should close
// the queue.
func (r *Reader) Run(ctx context.Context) error {
	stream, err := r.source.Open(ctx)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = stream.Close()
		case <-done:
		}
	}()
	defer close(done)

	sc := newScanner(stream)
	var lastWall time.Time

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		w, err := parseLine(line)
		if err != nil {
			r.counts.MalformedLines.Add(1)
			continue
		}

		recvNanos := time.Since(r.start).Nanoseconds()
		ev := normalize(w, recvNanos, time.Now().UTC())

		if !lastWall.IsZero() && ev.WallTime.Before(lastWall.Add(-slackBound)) {
			r.counts.OutOfOrderDropped.Add(1)
			continue
		}
		if ev.WallTime.After(lastWall) {
			lastWall = ev.WallTime
		}

		if dropped := r.queue.Publish(ev); dropped {
			r.counts.BackpressureDrops.Add(1)
		}
	}

	if err := sc.Err(); err != nil && err != io.EOF && ctx.Err() == nil {
		r.log.Warn("tracer stream ended with error", zap.Error(err))
		return err
	}
	return ctx.Err()
}
