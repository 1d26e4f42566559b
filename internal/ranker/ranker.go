// Package ranker implements C4, the PID Ranker: on a confirmed spike it
// scores every pid active during the incident's attribution window on
// anomaly, energy, and correlation, and fuses them into a ranked suspect
// list (spec §4.4).
package ranker

import (
	"math"
	"sort"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/stats"
)

const (
	// robustZEps mirrors the spike detector's epsilon (spec §4.3) for the
	// diagonal Mahalanobis fallback's per-metric z-scores.
	robustZEps = 0.5
	// minCorrelationSamples is the minimum overlap required to compute a
	// meaningful cosine similarity (spec §4.4).
	minCorrelationSamples = 10
	// maxSuspects bounds the output ranked list (spec §4.4).
	maxSuspects = 10

	weightAnomaly    = 0.4
	weightEnergy     = 0.4
	weightCorrelation = 0.2
)

// TelemetrySource is the subset of the aggregator's read surface the ranker
// needs. Implemented by *telemetry.Aggregator; abstracted here so tests can
// supply a fake without constructing a full aggregator.
type TelemetrySource interface {
	ActivePIDsAt(window time.Duration, asOf time.Time) []int32
	ProcessSnapshotsAt(pid int32, window time.Duration, asOf time.Time) []model.ProcessSnapshot
	HostWindow(seconds int) []model.HostSample
	Identity(pid int32) (string, *string)
}

// Config holds the ranker's tunables.
type Config struct {
	AttributionWindowSeconds int
	BaselineSeconds          int
}

// Ranker is task T4 (spec §5): CPU-bound, invoked on demand per confirmed
// incident, expected to run in well under 200ms at N≤200 active pids.
type Ranker struct {
	cfg     Config
	source  TelemetrySource
	exclude func(pid int32) bool
}

// New builds a Ranker reading telemetry from source.
func New(cfg Config, source TelemetrySource) *Ranker {
	return &Ranker{cfg: cfg, source: source}
}

// Exclude registers a predicate for pids that must never appear as
// suspects, e.g. rcawatch's own pid and the tracer subprocess's pid
// (observer-effect exclusion).
func (r *Ranker) Exclude(fn func(pid int32) bool) { r.exclude = fn }

// Rank computes the ranked suspect list for a confirmed incident's
// attribution window [asOf-window, asOf]. Returns suspects most-likely-
// culprit-first, capped at maxSuspects, and the confidence derived from the
// top suspect's score (spec §4.4). The caller passes this confidence to
// rca.Orchestrator.Submit, which floors the final RcaReport.Confidence with
// it on a successful LLM reply.
func (r *Ranker) Rank(asOf time.Time) ([]model.Suspect, float64) {
	window := time.Duration(r.cfg.AttributionWindowSeconds) * time.Second
	pids := r.source.ActivePIDsAt(window, asOf)

	hostSamples := r.source.HostWindow(r.cfg.BaselineSeconds)
	hostCPU := make([]float64, len(hostSamples))
	hostRAM := make([]float64, len(hostSamples))
	for i, s := range hostSamples {
		hostCPU[i] = s.CPUPct
		hostRAM[i] = s.RAMPct
	}
	baseline := stats.NewBaseline2(hostCPU, hostRAM)

	hostByTime := make(map[int64]float64, len(hostSamples))
	for _, s := range hostSamples {
		hostByTime[s.WallTime.UnixNano()] = s.CPUPct
	}

	var sumHostCPUDt, sumHostRAMDt float64
	for _, s := range hostSamples {
		if s.WallTime.After(asOf.Add(-window)) && !s.WallTime.After(asOf) {
			sumHostCPUDt += s.CPUPct
			sumHostRAMDt += s.RAMPct
		}
	}

	suspects := make([]model.Suspect, 0, len(pids))
	for _, pid := range pids {
		if r.exclude != nil && r.exclude(pid) {
			continue
		}
		snaps := r.source.ProcessSnapshotsAt(pid, window, asOf)
		if len(snaps) == 0 {
			continue
		}

		var cpuSum, ramSum float64
		var diskBytes int64
		cpuSeries := make([]float64, 0, len(snaps))
		hostAligned := make([]float64, 0, len(snaps))
		var lastCPU, lastRAM float64

		for _, snap := range snaps {
			cpuSum += snap.CPUPct
			ramSum += snap.RAMPct
			diskBytes += snap.DiskBytes
			cpuSeries = append(cpuSeries, snap.CPUPct)
			lastCPU, lastRAM = snap.CPUPct, snap.RAMPct
			if hv, ok := hostByTime[snap.WallTime.UnixNano()]; ok {
				hostAligned = append(hostAligned, hv)
			}
		}
		n := float64(len(snaps))
		meanCPU, meanRAM := cpuSum/n, ramSum/n

		anomaly := stats.FiniteOrZero(
			anomalyNorm(stats.Mahalanobis2(stats.Point2{X: meanCPU, Y: meanRAM}, baseline, robustZEps)))

		cpuShare := clip01(safeDiv(cpuSum, sumHostCPUDt))
		ramShare := clip01(safeDiv(ramSum, sumHostRAMDt))
		energy := stats.FiniteOrZero(weightEnergySplit(cpuShare, ramShare))

		var correlation float64
		if len(hostAligned) >= minCorrelationSamples && len(hostAligned) == len(cpuSeries) {
			correlation = stats.FiniteOrZero(max0(stats.CosineSimilarity(cpuSeries, hostAligned)))
		}

		score := stats.FiniteOrZero(weightAnomaly*anomaly + weightEnergy*energy + weightCorrelation*correlation)
		if anomaly == 0 && energy == 0 && correlation == 0 {
			continue
		}

		name, cmdline := r.source.Identity(pid)
		suspects = append(suspects, model.Suspect{
			PID:         pid,
			Name:        name,
			CmdLine:     cmdline,
			Anomaly:     anomaly,
			Energy:      energy,
			Correlation: correlation,
			Score:       score,
			CPUShare:    cpuShare,
			RAMShare:    ramShare,
			CPUPct:      lastCPU,
			RAMPct:      lastRAM,
			DiskBytes:   diskBytes,
		})
	}

	sort.Slice(suspects, func(i, j int) bool {
		a, b := suspects[i], suspects[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.CPUShare != b.CPUShare {
			return a.CPUShare > b.CPUShare
		}
		if a.RAMShare != b.RAMShare {
			return a.RAMShare > b.RAMShare
		}
		return a.PID < b.PID
	})

	if len(suspects) > maxSuspects {
		suspects = suspects[:maxSuspects]
	}

	var confidence float64
	if len(suspects) > 0 {
		top := suspects[0]
		confidence = top.Score
		if top.Anomaly >= 0.5 || top.Energy >= 0.5 || top.Correlation >= 0.5 {
			confidence = min1(top.Score * 1.25)
		}
	}

	return suspects, confidence
}

// anomalyNorm maps a Mahalanobis distance d onto [0,1) via
// 1 - exp(-d²/8) (spec §4.4).
func anomalyNorm(d float64) float64 {
	return 1 - math.Exp(-d*d/8)
}

func weightEnergySplit(cpuShare, ramShare float64) float64 {
	return 0.7*cpuShare + 0.3*ramShare
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
