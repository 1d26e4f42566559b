package tracer

import "github.com/dmitriimaksimovdevelop/rcawatch/internal/model"

// Queue is a bounded, never-blocking publish point from C1 to C2. On a full
// queue the oldest event is dropped to make room for the newest, per spec
// §4.1 rule 4 ("On queue full, drop the oldest event... never block the
// reader").
type Queue struct {
	ch chan model.Event
}

// NewQueue creates a Queue with the given capacity (spec default 64 Ki).
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan model.Event, capacity)}
}

// Publish enqueues ev, dropping the oldest queued event if full. Returns
// true if an event was dropped to make room. Only task T1 (the single
// reader goroutine, spec §5) calls Publish, so there is no producer race on
// the freed slot after eviction.
func (q *Queue) Publish(ev model.Event) (dropped bool) {
	select {
	case q.ch <- ev:
		return false
	default:
	}
	select {
	case <-q.ch:
		dropped = true
	default:
	}
	q.ch <- ev
	return dropped
}

// C receives published events; C2's ticker task drains this channel.
func (q *Queue) C() <-chan model.Event { return q.ch }

// Close signals no more events will be published. Safe to call once.
func (q *Queue) Close() { close(q.ch) }
