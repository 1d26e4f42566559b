package telemetry

import (
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

// processRow is one pid's arena entry: static identity plus its bounded
// ring of per-second snapshots (design note §9: "an arena of ProcessSnapshot
// rows indexed by a dense pid→row-id map").
type processRow struct {
	pid        int32
	name       string
	cmdLine    *string
	snapshots  *ring[model.ProcessSnapshot]
	lastSeen   time.Time
	stopped    bool
}

// processTable maps pid to its row. Evicted 120s after last snapshot or
// immediately on process_stop (spec §3 "Lifecycle").
type processTable struct {
	rows     map[int32]*processRow
	capacity int
}

func newProcessTable(ringCapacity int) *processTable {
	return &processTable{rows: make(map[int32]*processRow), capacity: ringCapacity}
}

func (t *processTable) row(pid int32) *processRow {
	r, ok := t.rows[pid]
	if !ok {
		r = &processRow{pid: pid, snapshots: newRing[model.ProcessSnapshot](t.capacity)}
		t.rows[pid] = r
	}
	return r
}

func (t *processTable) setIdentity(pid int32, name string, cmdLine *string) {
	r := t.row(pid)
	if r.name == "" && name != "" {
		r.name = name
	}
	if r.cmdLine == nil && cmdLine != nil {
		r.cmdLine = cmdLine
	}
}

func (t *processTable) markStopped(pid int32) {
	if r, ok := t.rows[pid]; ok {
		r.stopped = true
		delete(t.rows, pid)
	}
}

func (t *processTable) appendSnapshot(pid int32, snap model.ProcessSnapshot, now time.Time) {
	r := t.row(pid)
	if r.name == "" {
		r.name = snap.Name
	}
	r.snapshots.push(snap)
	r.lastSeen = now
}

// evictStale removes rows whose last snapshot is older than window.
func (t *processTable) evictStale(now time.Time, window time.Duration) {
	for pid, r := range t.rows {
		if r.lastSeen.IsZero() {
			continue
		}
		if now.Sub(r.lastSeen) > window {
			delete(t.rows, pid)
		}
	}
}

func (t *processTable) activePIDs(window time.Duration, now time.Time) []int32 {
	var out []int32
	for pid, r := range t.rows {
		if r.lastSeen.IsZero() || now.Sub(r.lastSeen) <= window {
			out = append(out, pid)
		}
	}
	return out
}

// snapshotsWithin returns the pid's snapshots within the last `window`,
// oldest first.
func (t *processTable) snapshotsWithin(pid int32, window time.Duration, now time.Time) []model.ProcessSnapshot {
	r, ok := t.rows[pid]
	if !ok {
		return nil
	}
	all := r.snapshots.items()
	cutoff := now.Add(-window)
	out := make([]model.ProcessSnapshot, 0, len(all))
	for _, s := range all {
		if !s.WallTime.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

func (t *processTable) identity(pid int32) (name string, cmdLine *string) {
	if r, ok := t.rows[pid]; ok {
		return r.name, r.cmdLine
	}
	return "", nil
}
