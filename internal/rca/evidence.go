package rca

import (
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/evidence"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

// IncidentMeta is the incident-identifying portion of an evidence payload
// (spec §4.5 "Incident metadata").
type IncidentMeta struct {
	ID              int64     `json:"id"`
	DetectedAt      time.Time `json:"detected_at"`
	CPUAtConfirm    float64   `json:"cpu_at_confirm"`
	RAMAtConfirm    float64   `json:"ram_at_confirm"`
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
}

// HostPoint is one (ts, cpu_pct, ram_pct) entry of the host-series snippet
// sent to the LLM collaborator (spec §4.5 "compact host-time-series
// snippet").
type HostPoint struct {
	TS     time.Time `json:"ts"`
	CPUPct float64   `json:"cpu_pct"`
	RAMPct float64   `json:"ram_pct"`
}

// EvidencePayload is the full request body sent to the external LLM
// collaborator (spec §6 "LLM request").
type EvidencePayload struct {
	Incident       IncidentMeta    `json:"incident"`
	Suspects       []model.Suspect `json:"suspects"`
	EventsSample   []model.Event   `json:"events_sample"`
	HostSeries     []HostPoint     `json:"host_series"`
	LocalConfidence float64        `json:"local_confidence"`
	Prompt         string          `json:"prompt"`
}

// maxEventsSample bounds the raw event evidence attached per incident (spec
// §4.5 "bounded sample (≤ 500)").
const maxEventsSample = 500

// BuildEvidence assembles the evidence payload for incident from its ranked
// suspects, the raw events observed in its window, the host series covering
// the same window, and localConfidence (C4's locally-derived ranking
// confidence, ranker.Rank's second return value) so the LLM collaborator
// sees the same floor the orchestrator will apply to its reply.
func BuildEvidence(inc model.SpikeIncident, suspects []model.Suspect, localConfidence float64, events []model.Event, hostSeries []model.HostSample) EvidencePayload {
	if len(events) > maxEventsSample {
		events = events[len(events)-maxEventsSample:]
	}

	points := make([]HostPoint, 0, len(hostSeries))
	promptPoints := make([]evidence.HostPoint, 0, len(hostSeries))
	for _, s := range hostSeries {
		points = append(points, HostPoint{TS: s.WallTime, CPUPct: s.CPUPct, RAMPct: s.RAMPct})
		promptPoints = append(promptPoints, evidence.HostPoint{TS: s.WallTime, CPUPct: s.CPUPct, RAMPct: s.RAMPct})
	}

	return EvidencePayload{
		Incident: IncidentMeta{
			ID:           inc.ID,
			DetectedAt:   inc.DetectedAt,
			CPUAtConfirm: inc.CPUAtConfirm,
			RAMAtConfirm: inc.RAMAtConfirm,
			WindowStart:  inc.WindowStart,
			WindowEnd:    inc.WindowEnd,
		},
		Suspects:        suspects,
		EventsSample:    events,
		HostSeries:      points,
		LocalConfidence: localConfidence,
		Prompt:          evidence.GeneratePrompt(inc, suspects, localConfidence, len(events), promptPoints),
	}
}
