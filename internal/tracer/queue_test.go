package tracer

import (
	"testing"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)
	ev := func(n int) model.Event {
		return model.Event{WallTime: time.Unix(int64(n), 0), Kind: model.Other}
	}

	if d := q.Publish(ev(1)); d {
		t.Fatal("unexpected drop on first publish")
	}
	if d := q.Publish(ev(2)); d {
		t.Fatal("unexpected drop on second publish")
	}
	if d := q.Publish(ev(3)); !d {
		t.Fatal("expected drop on third publish into a full queue of capacity 2")
	}

	first := <-q.C()
	if !first.WallTime.Equal(time.Unix(2, 0)) {
		t.Errorf("oldest remaining event = %v, want event 2 (event 1 should have been evicted)", first.WallTime)
	}
	second := <-q.C()
	if !second.WallTime.Equal(time.Unix(3, 0)) {
		t.Errorf("next event = %v, want event 3", second.WallTime)
	}
}
