// Package observer implements the observer-effect exclusion supplemented
// feature: rcawatch's own pid and the tracer subprocess's process tree are
// excluded from C4's suspect lists so the service never attributes its own
// CPU/RAM footprint (or the tracer's) to the spike it is diagnosing.
//
// Adapted from the teacher's internal/observer.PIDTracker, which excludes
// melisai's own pid and its spawned BCC tool pids from top-CPU/top-mem
// lists the same way, but the teacher's tracker only ever grew through an
// external Add(pid, role) call made by whoever spawned each tool. rcawatch
// has exactly one subprocess it spawns directly (the tracer); everything
// else under it — helper processes the tracer launches, a respawned
// capture tool — only becomes known to rcawatch as process_start events on
// the ingest stream. PIDTracker here tracks the one pid it's told about
// directly and grows the rest of the set itself by watching that stream for
// process_start events whose reported parent (the payload's parent_pid key)
// is already tracked.
package observer

import (
	"os"
	"sync"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

// PIDTracker is a thread-safe registry of rcawatch's own pid plus every pid
// observed to descend from the tracer subprocess, consulted by C4 to filter
// self-noise from ranked suspects.
type PIDTracker struct {
	mu      sync.RWMutex
	selfPID int32
	tracked map[int32]struct{} // pids descending from (or equal to) the tracer subprocess
}

// NewPIDTracker creates a PIDTracker seeded with the current process pid.
func NewPIDTracker() *PIDTracker {
	return &PIDTracker{
		selfPID: int32(os.Getpid()),
		tracked: make(map[int32]struct{}),
	}
}

// SelfPID returns rcawatch's own process id.
func (t *PIDTracker) SelfPID() int32 {
	return t.selfPID
}

// TrackSubprocess registers the pid rcawatch just spawned directly (the
// tracer). This is the one pid PIDTracker cannot learn from the event
// stream: the tracer's own process_start, if ETW reports it at all, can
// race with the tracer opening its stdout pipe, so the spawning code path
// seeds it synchronously instead.
func (t *PIDTracker) TrackSubprocess(pid int32) {
	t.mu.Lock()
	t.tracked[pid] = struct{}{}
	t.mu.Unlock()
}

// Observe inspects one normalized tracer event and grows or shrinks the
// tracked set from process lineage: a process_start whose parent_pid
// payload key names an already-tracked pid means the new pid is a
// descendant too; a process_stop for a tracked pid retires it.
func (t *PIDTracker) Observe(ev model.Event) {
	switch ev.Kind {
	case model.ProcessStart:
		if ev.PID == nil {
			return
		}
		parent, ok := parentPID(ev)
		if !ok {
			return
		}
		t.mu.Lock()
		if _, tracked := t.tracked[parent]; tracked {
			t.tracked[*ev.PID] = struct{}{}
		}
		t.mu.Unlock()
	case model.ProcessStop:
		if ev.PID == nil {
			return
		}
		t.mu.Lock()
		delete(t.tracked, *ev.PID)
		t.mu.Unlock()
	}
}

// parentPID extracts the spawning pid from a process_start event's payload,
// the free-form key the tracer uses to report lineage (spec §3 "Event": "a
// free-form key→scalar payload map").
func parentPID(ev model.Event) (int32, bool) {
	v, ok := ev.Payload["parent_pid"]
	if !ok || v.Type != "int" {
		return 0, false
	}
	return int32(v.Int), true
}

// IsOwnPID reports whether pid is rcawatch itself or a tracked descendant
// of the tracer subprocess.
func (t *PIDTracker) IsOwnPID(pid int32) bool {
	if pid == t.selfPID {
		return true
	}
	t.mu.RLock()
	_, ok := t.tracked[pid]
	t.mu.RUnlock()
	return ok
}

// AllPIDs returns rcawatch's own pid plus every currently tracked pid.
func (t *PIDTracker) AllPIDs() []int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pids := make([]int32, 0, 1+len(t.tracked))
	pids = append(pids, t.selfPID)
	for pid := range t.tracked {
		pids = append(pids, pid)
	}
	return pids
}

// TrackedCount returns the number of currently tracked descendant pids
// (excluding rcawatch's own pid).
func (t *PIDTracker) TrackedCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tracked)
}
