// Package telemetry implements C2, the Telemetry Aggregator: it owns the
// host sample ring and the per-pid process table, advances both once per
// tick from the events C1 publishes, and exposes copy-out query methods for
// readers (spec §4.2, §5).
package telemetry

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/metrics"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/tracer"
	"go.uber.org/zap"
)

// cpuSumTolerancePct is the rounding tolerance on the invariant that summed
// per-pid cpu_pct must not exceed 100%·num_cores (spec §4.2).
const cpuSumTolerancePct = 2.0

// Aggregator is task T2 (and shares its thread with T3, spec §5).
type Aggregator struct {
	mu sync.RWMutex

	hostRing    *ring[model.HostSample]
	procs       *processTable
	eventsRing  *ring[model.Event]

	pidWindow time.Duration

	queue    *tracer.Queue
	hostSrc  HostCounterSource
	wsSrc    WorkingSetSource
	cores    NumCores
	tickEvery time.Duration

	log    *zap.Logger
	counts *metrics.Counters

	// onTick is invoked synchronously after each tick's HostSample is
	// committed, letting C3 run on the same goroutine without a channel
	// hop (spec §5 task T3).
	onTick func(model.HostSample)

	// onEvent is invoked once per raw event processed this tick, before
	// per-pid accumulation, letting the observer-effect pid tracker grow
	// its tracked-descendant set from live process lineage.
	onEvent func(model.Event)
}

// Config bundles the Aggregator's construction parameters.
type Config struct {
	HostWindowSeconds int
	PIDWindowSeconds  int
	EventRingCapacity int
	TickEvery         time.Duration
	Queue             *tracer.Queue
	HostSource        HostCounterSource
	WorkingSetSource  WorkingSetSource
	Cores             NumCores
	Log               *zap.Logger
	Counts            *metrics.Counters
}

// New builds an Aggregator from cfg, filling sensible defaults.
func New(cfg Config) *Aggregator {
	if cfg.TickEvery <= 0 {
		cfg.TickEvery = time.Second
	}
	if cfg.EventRingCapacity <= 0 {
		cfg.EventRingCapacity = 20000
	}
	if cfg.Cores == nil {
		cfg.Cores = StaticCores(runtime.NumCPU())
	}
	return &Aggregator{
		hostRing:   newRing[model.HostSample](cfg.HostWindowSeconds),
		procs:      newProcessTable(cfg.PIDWindowSeconds),
		eventsRing: newRing[model.Event](cfg.EventRingCapacity),
		pidWindow:  time.Duration(cfg.PIDWindowSeconds) * time.Second,
		queue:      cfg.Queue,
		hostSrc:    cfg.HostSource,
		wsSrc:      cfg.WorkingSetSource,
		cores:      cfg.Cores,
		tickEvery:  cfg.TickEvery,
		log:        cfg.Log,
		counts:     cfg.Counts,
	}
}

// OnTick registers the callback invoked after each HostSample is committed.
func (a *Aggregator) OnTick(fn func(model.HostSample)) { a.onTick = fn }

// OnEvent registers the callback invoked once per event this tick, before
// per-pid accumulation.
func (a *Aggregator) OnEvent(fn func(model.Event)) { a.onEvent = fn }

// Run drains the ingest queue and closes one bucket every tickEvery until
// ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.closeTick(time.Now().UTC())
		}
	}
}

// closeTick drains whatever events are currently queued and advances both
// rings by one bucket. Exported for deterministic tests via Tick.
func (a *Aggregator) closeTick(now time.Time) {
	var batch []model.Event
	for {
		select {
		case ev, ok := <-a.queue.C():
			if !ok {
				break
			}
			batch = append(batch, ev)
			continue
		default:
		}
		break
	}
	a.Tick(now, batch)
}

// Tick processes one batch of events as a single 1-second bucket. It is the
// unit tests drive directly to avoid depending on wall-clock ticks.
func (a *Aggregator) Tick(now time.Time, batch []model.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tickDuration := a.tickEvery
	if tickDuration <= 0 {
		tickDuration = time.Second
	}
	numCores := a.cores.Cores()
	if numCores <= 0 {
		numCores = 1
	}

	type accum struct {
		cpuCoreSeconds float64
		diskBytes      int64
		netBytes       int64
		events         int
	}
	perPID := make(map[int32]*accum)
	get := func(pid int32) *accum {
		r, ok := perPID[pid]
		if !ok {
			r = &accum{}
			perPID[pid] = r
		}
		return r
	}

	totalSwitches := 0
	totalCPUSamples := 0
	for _, ev := range batch {
		if ev.Kind == model.ContextSwitch && ev.NewPID != nil {
			totalSwitches++
		}
		if ev.Kind == model.CPUSample && ev.PID != nil {
			totalCPUSamples++
		}
	}

	stopped := make(map[int32]bool)
	for _, ev := range batch {
		a.eventsRing.push(ev)
		if a.onEvent != nil {
			a.onEvent(ev)
		}

		switch ev.Kind {
		case model.ProcessStart:
			if ev.PID != nil {
				name, cmdline := identityFromPayload(ev)
				a.procs.setIdentity(*ev.PID, name, cmdline)
			}
		case model.ProcessStop:
			if ev.PID != nil {
				stopped[*ev.PID] = true
			}
		case model.ContextSwitch:
			if ev.NewPID != nil && totalSwitches > 0 {
				credit := tickDuration.Seconds() / float64(totalSwitches)
				get(*ev.NewPID).cpuCoreSeconds += credit
			}
		case model.CPUSample:
			if ev.PID != nil && totalCPUSamples > 0 {
				credit := tickDuration.Seconds() / float64(totalCPUSamples)
				get(*ev.PID).cpuCoreSeconds += credit
			}
		case model.FileRead, model.FileWrite:
			if ev.PID != nil && ev.DiskBytes != nil {
				get(*ev.PID).diskBytes += *ev.DiskBytes
			}
		case model.TCPSend, model.TCPRecv:
			if ev.PID != nil && ev.NetBytes != nil {
				get(*ev.PID).netBytes += *ev.NetBytes
			}
		}

		if ev.PID != nil {
			get(*ev.PID).events++
		}
	}

	var cpuPctSum float64
	for pid, acc := range perPID {
		if stopped[pid] {
			// a process_stop landed in the same tick: don't resurrect the
			// row we're about to evict below with a fresh snapshot.
			continue
		}
		cpuPct := acc.cpuCoreSeconds / (float64(numCores) * tickDuration.Seconds()) * 100
		cpuPctSum += cpuPct

		ramPct := 0.0
		ramUnavailable := false
		if a.wsSrc != nil {
			v, err := a.wsSrc.WorkingSetPct(pid)
			if err != nil {
				ramUnavailable = true
				if a.counts != nil {
					a.counts.RAMUnavailableHits.Add(1)
				}
			} else {
				ramPct = v
			}
		}

		name, cmdline := a.procs.identity(pid)
		snap := model.ProcessSnapshot{
			WallTime:       now,
			PID:            pid,
			Name:           name,
			CmdLine:        cmdline,
			CPUPct:         cpuPct,
			RAMPct:         ramPct,
			DiskBytes:      acc.diskBytes,
			NetBytes:       acc.netBytes,
			EventCount:     acc.events,
			RAMUnavailable: ramUnavailable,
		}
		a.procs.appendSnapshot(pid, snap, now)
	}
	for pid := range stopped {
		a.procs.markStopped(pid)
	}
	a.procs.evictStale(now, a.pidWindow)

	if cpuPctSum > float64(numCores)*100+cpuSumTolerancePct && a.log != nil {
		a.log.Warn("per-pid cpu_pct sum exceeds host capacity beyond tolerance",
			zap.Float64("sum_pct", cpuPctSum), zap.Int("num_cores", numCores))
	}

	var hostSample model.HostSample
	if a.hostSrc != nil {
		cpu, err := a.hostSrc.CPUTotalPct()
		if err != nil && a.log != nil {
			a.log.Warn("host cpu counter unavailable", zap.Error(err))
		}
		ram, err := a.hostSrc.RAMUsedPct()
		if err != nil && a.log != nil {
			a.log.Warn("host ram counter unavailable", zap.Error(err))
		}
		hostSample = model.HostSample{WallTime: now, CPUPct: clampPct(cpu), RAMPct: clampPct(ram)}
	} else {
		hostSample = model.HostSample{WallTime: now}
	}

	if last, ok := a.hostRing.last(); ok && hostSample.WallTime.Before(last.WallTime) {
		// spec §5: a host sample with an earlier wall time than the
		// previous sample is discarded (strictly monotonic ordering).
		return
	}
	a.hostRing.push(hostSample)

	if a.onTick != nil {
		a.onTick(hostSample)
	}
}

func clampPct(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func identityFromPayload(ev model.Event) (name string, cmdLine *string) {
	if v, ok := ev.Payload["name"]; ok && v.Type == "string" {
		name = v.Str
	}
	if v, ok := ev.Payload["cmdline"]; ok && v.Type == "string" {
		s := v.Str
		cmdLine = &s
	}
	return name, cmdLine
}

// --- Read surface (copy-out, safe for concurrent callers) ---

// LatestHostSample returns the most recent HostSample, if any.
func (a *Aggregator) LatestHostSample() (model.HostSample, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.hostRing.last()
}

// HostWindow returns HostSamples from the last `seconds` seconds, oldest
// first.
func (a *Aggregator) HostWindow(seconds int) []model.HostSample {
	a.mu.RLock()
	defer a.mu.RUnlock()
	all := a.hostRing.items()
	if seconds <= 0 || seconds >= len(all) {
		return all
	}
	return append([]model.HostSample(nil), all[len(all)-seconds:]...)
}

// ProcessSnapshots returns a pid's snapshots from the last `seconds`
// seconds, oldest first.
func (a *Aggregator) ProcessSnapshots(pid int32, seconds int) []model.ProcessSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	now := time.Now().UTC()
	if last, ok := a.hostRing.last(); ok {
		now = last.WallTime
	}
	return a.procs.snapshotsWithin(pid, time.Duration(seconds)*time.Second, now)
}

// ProcessSnapshotsAt is ProcessSnapshots with an explicit reference time,
// used by the ranker to query a fixed attribution window deterministically.
func (a *Aggregator) ProcessSnapshotsAt(pid int32, window time.Duration, asOf time.Time) []model.ProcessSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.procs.snapshotsWithin(pid, window, asOf)
}

// ActivePIDs returns pids with a snapshot in the last `windowSeconds`.
func (a *Aggregator) ActivePIDs(windowSeconds int) []int32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	now := time.Now().UTC()
	if last, ok := a.hostRing.last(); ok {
		now = last.WallTime
	}
	return a.procs.activePIDs(time.Duration(windowSeconds)*time.Second, now)
}

// ActivePIDsAt is ActivePIDs with an explicit reference time.
func (a *Aggregator) ActivePIDsAt(window time.Duration, asOf time.Time) []int32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.procs.activePIDs(window, asOf)
}

// Identity returns the static name/cmdline rcawatch has observed for pid.
func (a *Aggregator) Identity(pid int32) (name string, cmdLine *string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.procs.identity(pid)
}

// RecentEvents returns up to max normalized events from the last
// `windowSeconds` seconds, most-recent-last. A non-positive windowSeconds
// applies no time bound, as in HostWindow.
func (a *Aggregator) RecentEvents(windowSeconds int, max int) []model.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()
	all := a.eventsRing.items()
	cutoff := time.Time{}
	if last, ok := a.hostRing.last(); ok && windowSeconds > 0 {
		cutoff = last.WallTime.Add(-time.Duration(windowSeconds) * time.Second)
	}
	var filtered []model.Event
	for _, ev := range all {
		if cutoff.IsZero() || !ev.WallTime.Before(cutoff) {
			filtered = append(filtered, ev)
		}
	}
	if max > 0 && len(filtered) > max {
		filtered = filtered[len(filtered)-max:]
	}
	return filtered
}

// EventsInWindow returns normalized events with WallTime in [start, end],
// most-recent-last, capped at max. Used by C5 to build the bounded evidence
// sample for a specific incident's attribution window.
func (a *Aggregator) EventsInWindow(start, end time.Time, max int) []model.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()
	all := a.eventsRing.items()
	var filtered []model.Event
	for _, ev := range all {
		if !ev.WallTime.Before(start) && !ev.WallTime.After(end) {
			filtered = append(filtered, ev)
		}
	}
	if max > 0 && len(filtered) > max {
		filtered = filtered[len(filtered)-max:]
	}
	return filtered
}
