// Package readapi implements C7, the Read API Adapter: a thin mapping from
// the incident store and telemetry aggregator onto the external HTTP
// contract (spec §4.7, §6 "HTTP read surface"). The transport itself — the
// dashboard, its auth, its framing — is out of scope; this package defines
// the response shapes and the query functions that produce them, plus a
// stdlib net/http wrapper so cmd/rcawatch can serve them without pulling in
// a router dependency nothing else in this corpus uses for a contract this
// small.
package readapi

import (
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

// maxEventsLimit bounds /api/events?limit=N (spec §6: "last N (<=500)").
const maxEventsLimit = 500

// TelemetryReader is the subset of *telemetry.Aggregator the read API needs.
type TelemetryReader interface {
	HostWindow(seconds int) []model.HostSample
	RecentEvents(windowSeconds int, max int) []model.Event
}

// IncidentReader is the subset of *store.Store the read API needs.
type IncidentReader interface {
	Get(id int64) (model.SpikeIncident, bool)
	List(limit int, sinceUnixNano int64) []model.SpikeIncident
	LatestRCA() (model.RcaReport, bool)
}

// SpikesResponse is the body of GET /api/spikes.
type SpikesResponse struct {
	Spikes []model.SpikeIncident `json:"spikes"`
}

// LatestRCAResponse is the body of GET /api/latest-rca.
type LatestRCAResponse struct {
	LatestRCA *model.RcaReport `json:"latest_rca"`
}

// EventsResponse is the body of GET /api/events.
type EventsResponse struct {
	Events []model.Event `json:"events"`
}

// TelemetryPoint is one sample in GET /api/telemetry/window.
type TelemetryPoint struct {
	TS  time.Time `json:"ts"`
	CPU float64   `json:"cpu"`
	RAM float64   `json:"ram"`
}

// TelemetryWindowResponse is the body of GET /api/telemetry/window.
type TelemetryWindowResponse struct {
	Samples []TelemetryPoint `json:"samples"`
}

// Adapter implements the C7 contract over a store and an aggregator.
type Adapter struct {
	store     IncidentReader
	telemetry TelemetryReader
}

// New builds an Adapter.
func New(store IncidentReader, telemetry TelemetryReader) *Adapter {
	return &Adapter{store: store, telemetry: telemetry}
}

// Spikes answers GET /api/spikes: all retained incidents, newest first.
func (a *Adapter) Spikes() SpikesResponse {
	spikes := a.store.List(0, 0)
	if spikes == nil {
		spikes = []model.SpikeIncident{}
	}
	return SpikesResponse{Spikes: spikes}
}

// Spike answers GET /api/spikes/{id}: the full incident including
// etw_events and rca, if present.
func (a *Adapter) Spike(id int64) (model.SpikeIncident, bool) {
	return a.store.Get(id)
}

// LatestRCA answers GET /api/latest-rca.
func (a *Adapter) LatestRCA() LatestRCAResponse {
	report, ok := a.store.LatestRCA()
	if !ok {
		return LatestRCAResponse{LatestRCA: nil}
	}
	return LatestRCAResponse{LatestRCA: &report}
}

// Events answers GET /api/events?limit=N: the last limit normalized events,
// clamped to maxEventsLimit. A non-positive limit is treated as the max.
func (a *Adapter) Events(limit int) EventsResponse {
	if limit <= 0 || limit > maxEventsLimit {
		limit = maxEventsLimit
	}
	events := a.telemetry.RecentEvents(0, limit)
	if events == nil {
		events = []model.Event{}
	}
	return EventsResponse{Events: events}
}

// TelemetryWindow answers GET /api/telemetry/window?seconds=S.
func (a *Adapter) TelemetryWindow(seconds int) TelemetryWindowResponse {
	samples := a.telemetry.HostWindow(seconds)
	points := make([]TelemetryPoint, 0, len(samples))
	for _, s := range samples {
		points = append(points, TelemetryPoint{TS: s.WallTime, CPU: s.CPUPct, RAM: s.RAMPct})
	}
	return TelemetryWindowResponse{Samples: points}
}
