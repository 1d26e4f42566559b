// Package spike implements C3, the Spike Detector: a per-HostSample state
// machine that maintains robust CPU/RAM baselines and declares
// Candidate/Confirmed/Cooling spike states (spec §4.3).
package spike

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/stats"
)

// State is one of the spike detector's four lifecycle states.
type State string

const (
	Normal    State = "normal"
	Candidate State = "candidate"
	Confirmed State = "confirmed"
	Cooling   State = "cooling"
)

const (
	// coldStartSamples is the minimum number of baseline samples before any
	// trigger evaluation is attempted (spec §4.3 "cold-start suppression").
	coldStartSamples = 30
	// trendSamples is the window used by the falling-edge trend filter.
	trendSamples = 5
	// baselineEps prevents MAD-based z-scores from blowing up on quiet
	// hosts with near-zero variance (spec §4.3, ε = 0.5).
	baselineEps = 0.5
)

// Config holds the detector's tunables, all sourced from config.Snapshot.
type Config struct {
	BaselineSeconds       int
	ZThreshold            float64
	CPUFloor              float64
	RAMFloor              float64
	PersistenceSamples    int
	CooldownSamples       int
	CoolingSeconds        int
	MinIncidentGapSeconds int
}

// Detector is task T3 (spec §5): it shares C2's tick goroutine, so Observe
// is expected to be called synchronously from the aggregator's OnTick hook.
type Detector struct {
	mu sync.Mutex

	cfg Config

	cpuWindow *floatRing
	ramWindow *floatRing
	seen      int

	state              State
	consecutiveTrig    int
	consecutiveNonTrig int
	coolingSince       time.Time
	lastIncidentAt     time.Time

	nextID atomic.Int64

	onConfirmed func(model.SpikeIncident)
}

// New builds a Detector in the Normal state.
func New(cfg Config) *Detector {
	return &Detector{
		cfg:       cfg,
		cpuWindow: newFloatRing(cfg.BaselineSeconds),
		ramWindow: newFloatRing(cfg.BaselineSeconds),
		state:     Normal,
	}
}

// OnConfirmed registers the callback fired synchronously on every
// Normal→Confirmed (or gap-expired Cooling→Confirmed) edge, with a freshly
// assigned SpikeIncident missing only ETWEvents and Rca.
func (d *Detector) OnConfirmed(fn func(model.SpikeIncident)) { d.onConfirmed = fn }

// State reports the detector's current lifecycle state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Observe feeds one HostSample into the detector, advancing its baseline
// windows and state machine. attributionWindow sizes the resulting
// incident's WindowStart/WindowEnd on a confirm edge (spec default 60s).
func (d *Detector) Observe(sample model.HostSample, attributionWindow time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	haveBaseline := d.seen >= coldStartSamples
	var cpuZ, ramZ float64
	if haveBaseline {
		cpuItems := d.cpuWindow.items()
		ramItems := d.ramWindow.items()
		cpuMed := stats.Median(cpuItems)
		ramMed := stats.Median(ramItems)
		cpuZ = stats.RobustZ(sample.CPUPct, cpuMed, stats.MAD(cpuItems, cpuMed), baselineEps)
		ramZ = stats.RobustZ(sample.RAMPct, ramMed, stats.MAD(ramItems, ramMed), baselineEps)
	}

	triggered := haveBaseline &&
		(cpuZ >= d.cfg.ZThreshold || ramZ >= d.cfg.ZThreshold) &&
		(sample.CPUPct >= d.cfg.CPUFloor || sample.RAMPct >= d.cfg.RAMFloor)

	d.cpuWindow.push(sample.CPUPct)
	d.ramWindow.push(sample.RAMPct)
	d.seen++

	switch d.state {
	case Normal:
		if triggered && !d.fallingEdge() {
			d.state = Candidate
			d.consecutiveTrig = 1
		}

	case Candidate:
		if triggered {
			d.consecutiveTrig++
			if d.consecutiveTrig >= d.cfg.PersistenceSamples {
				d.confirm(sample, attributionWindow)
			}
		} else {
			d.state = Normal
			d.consecutiveTrig = 0
		}

	case Confirmed:
		if triggered {
			d.consecutiveNonTrig = 0
		} else {
			d.consecutiveNonTrig++
			if d.consecutiveNonTrig >= d.cfg.CooldownSamples {
				d.state = Cooling
				d.coolingSince = sample.WallTime
			}
		}

	case Cooling:
		if triggered {
			d.consecutiveNonTrig = 0
			gap := time.Duration(d.cfg.MinIncidentGapSeconds) * time.Second
			if sample.WallTime.Sub(d.lastIncidentAt) >= gap {
				d.confirm(sample, attributionWindow)
			} else {
				d.state = Confirmed
			}
		} else if sample.WallTime.Sub(d.coolingSince) >= time.Duration(d.cfg.CoolingSeconds)*time.Second {
			d.state = Normal
		}
	}
}

// fallingEdge rejects a would-be Candidate transition when both cpu and ram
// are trending down over the last trendSamples samples (spec §4.3 "Trend
// filter"). Requires at least trendSamples buffered samples to apply.
func (d *Detector) fallingEdge() bool {
	cpuItems := d.cpuWindow.items()
	ramItems := d.ramWindow.items()
	if len(cpuItems) < trendSamples || len(ramItems) < trendSamples {
		return false
	}
	cpuTrend := cpuItems[len(cpuItems)-1] - cpuItems[len(cpuItems)-trendSamples]
	ramTrend := ramItems[len(ramItems)-1] - ramItems[len(ramItems)-trendSamples]
	return cpuTrend < 0 && ramTrend < 0
}

func (d *Detector) confirm(sample model.HostSample, attributionWindow time.Duration) {
	d.state = Confirmed
	d.consecutiveNonTrig = 0
	d.lastIncidentAt = sample.WallTime

	inc := model.SpikeIncident{
		ID:           d.nextID.Add(1),
		DetectedAt:   sample.WallTime,
		CPUAtConfirm: sample.CPUPct,
		RAMAtConfirm: sample.RAMPct,
		WindowStart:  sample.WallTime.Add(-attributionWindow),
		WindowEnd:    sample.WallTime,
	}
	if d.onConfirmed != nil {
		d.onConfirmed(inc)
	}
}
