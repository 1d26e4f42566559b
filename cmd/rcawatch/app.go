package main

import (
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/config"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/metrics"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/observer"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/ranker"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/rca"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/readapi"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/spike"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/store"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/telemetry"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/tracer"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/winperf"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// app bundles the wired-up components a running rcawatch process (or a
// replay run) needs, assembled the way the teacher's orchestrator.New
// wires its registered collectors together — one constructor, one place
// that knows the full dependency graph.
type app struct {
	runID string

	cfg    *config.Snapshot
	log    *zap.Logger
	counts *metrics.Counters

	queue       *tracer.Queue
	reader      *tracer.Reader
	aggregator  *telemetry.Aggregator
	detector    *spike.Detector
	rank        *ranker.Ranker
	orchestrator *rca.Orchestrator
	incidents   *store.Store
	adapter     *readapi.Adapter
	handler     *readapi.Handler
	pids        *observer.PIDTracker
}

// buildApp wires every component for one process lifetime from cfg. source
// is the tracer's input stream (a spawned subprocess for `run`, a captured
// file for `replay`).
func buildApp(cfg *config.Snapshot, log *zap.Logger, source tracer.Source) *app {
	counts := metrics.New()
	pids := observer.NewPIDTracker()

	queue := tracer.NewQueue(64 * 1024)
	reader := tracer.NewReader(source, queue, log, counts, time.Now())

	aggregator := telemetry.New(telemetry.Config{
		HostWindowSeconds: cfg.HostWindowSeconds,
		PIDWindowSeconds:  cfg.PIDWindowSeconds,
		Queue:             queue,
		HostSource:        winperf.Unavailable{},
		WorkingSetSource:  winperf.UnavailableWorkingSet{},
		Log:               log,
		Counts:            counts,
	})

	incidents := store.New(cfg.IncidentRetention)

	rankerCfg := ranker.Config{
		AttributionWindowSeconds: cfg.AttributionWindowSeconds,
		BaselineSeconds:          cfg.BaselineSeconds,
	}
	rank := ranker.New(rankerCfg, aggregator)
	rank.Exclude(pids.IsOwnPID)

	client := rca.NewClient(cfg.LLMEndpoint, cfg.LLMTimeout(), log)
	orch := rca.New(client, log, counts)

	a := &app{
		runID:        uuid.New().String(),
		cfg:          cfg,
		log:          log,
		counts:       counts,
		queue:        queue,
		reader:       reader,
		aggregator:   aggregator,
		detector:     spike.New(spike.Config{
			BaselineSeconds:       cfg.BaselineSeconds,
			ZThreshold:            cfg.ZThreshold,
			CPUFloor:              cfg.CPUFloor,
			RAMFloor:              cfg.RAMFloor,
			PersistenceSamples:    cfg.PersistenceSamples,
			CooldownSamples:       cfg.CooldownSamples,
			CoolingSeconds:        cfg.CoolingSeconds,
			MinIncidentGapSeconds: cfg.MinIncidentGapSeconds,
		}),
		rank:         rank,
		orchestrator: orch,
		incidents:    incidents,
		pids:         pids,
	}

	a.adapter = readapi.New(incidents, aggregator)
	a.handler = readapi.NewHandler(a.adapter)

	a.detector.OnConfirmed(a.onConfirmed)
	a.orchestrator.OnResult(a.onRcaResult)
	a.aggregator.OnTick(a.onTick)
	a.aggregator.OnEvent(pids.Observe)

	return a
}

// onTick feeds each committed HostSample into the spike detector, sharing
// C2's tick goroutine the way spec §5 task T3 requires.
func (a *app) onTick(sample model.HostSample) {
	a.detector.Observe(sample, a.cfg.AttributionWindow())
}

// onConfirmed runs on a Normal/Cooling→Confirmed edge: it ranks the active
// pids, inserts the incident, and submits it for RCA.
func (a *app) onConfirmed(inc model.SpikeIncident) {
	suspects, confidence := a.rank.Rank(inc.WindowEnd)
	inc.ETWEvents = a.aggregator.EventsInWindow(inc.WindowStart, inc.WindowEnd, 500)

	a.counts.IncidentsCreated.Add(1)
	a.incidents.Insert(inc)

	hostSeries := a.aggregator.HostWindow(a.cfg.AttributionWindowSeconds)
	a.orchestrator.Submit(inc, suspects, confidence, inc.ETWEvents, hostSeries)

	a.log.Info("spike confirmed",
		zap.Int64("incident_id", inc.ID),
		zap.Float64("cpu_at_confirm", inc.CPUAtConfirm),
		zap.Float64("ram_at_confirm", inc.RAMAtConfirm),
		zap.Int("suspects", len(suspects)))
}

// onRcaResult assigns the completed (or fallback) RcaReport to its
// incident.
func (a *app) onRcaResult(incidentID int64, report model.RcaReport) {
	if !a.incidents.UpdateRCA(incidentID, report) {
		a.log.Warn("rca result for unknown or already-assigned incident", zap.Int64("incident_id", incidentID))
	}
}
