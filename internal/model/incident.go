package model

import "time"

// SpikeIncident is created by the spike detector at the Normal→Confirmed
// edge and thereafter is immutable except for a one-time assignment of its
// Rca field (spec §3 "SpikeIncident", §5 ordering guarantees).
type SpikeIncident struct {
	ID          int64     `json:"id"`
	DetectedAt  time.Time `json:"detected_at"`
	CPUAtConfirm float64  `json:"cpu_at_confirm"`
	RAMAtConfirm float64  `json:"ram_at_confirm"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	ETWEvents   []Event   `json:"etw_events"`
	Rca         *RcaReport `json:"rca,omitempty"`
}

// Suspect is one ranked pid with its fused score and components (spec §4.4).
type Suspect struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CmdLine    *string `json:"cmdline,omitempty"`
	Anomaly    float64 `json:"anomaly"`
	Energy     float64 `json:"energy"`
	Correlation float64 `json:"correlation"`
	Score      float64 `json:"score"`
	CPUShare   float64 `json:"cpu_share"`
	RAMShare   float64 `json:"ram_share"`
	CPUPct     float64 `json:"cpu_pct"`
	RAMPct     float64 `json:"ram_pct"`
	DiskBytes  int64   `json:"disk_bytes"`
}

// TimelineEntry is one event surfaced in an RcaReport's timeline (spec §3
// "RcaReport" → timeline).
type TimelineEntry struct {
	Time      time.Time `json:"ts"`
	EventType string    `json:"event_type"`
	Details   string    `json:"details"`
}

// CulpritProcess is the top-ranked suspect, echoed into the RcaReport with
// the subset of fields spec §3 names.
type CulpritProcess struct {
	PID       int32   `json:"pid"`
	Name      string  `json:"name"`
	CmdLine   *string `json:"cmdline,omitempty"`
	CPUPct    float64 `json:"cpu_pct"`
	RAMPct    float64 `json:"ram_pct"`
	DiskBytes int64   `json:"disk_bytes"`
}

// ResourceImpact carries the delta attributed to the incident (spec §3).
type ResourceImpact struct {
	CPUSpikePercent float64 `json:"cpu_spike_percent"`
	RAMSpikePercent float64 `json:"ram_spike_percent"`
}

// RankedSuspect is the compact {pid, name, score} form used in RcaReport
// (spec §3 "ranked_suspects"). The fuller Suspect (with components) is used
// internally and in evidence payloads sent to the LLM.
type RankedSuspect struct {
	PID   int32   `json:"pid"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// RcaReport is the structured root-cause-analysis record (spec §3).
type RcaReport struct {
	CauseSummary    string          `json:"cause_summary"`
	Confidence      float64         `json:"confidence"`
	CulpritProcess  CulpritProcess  `json:"culprit_process"`
	ResourceImpact  ResourceImpact  `json:"resource_impact"`
	RankedSuspects  []RankedSuspect `json:"ranked_suspects"`
	Timeline        []TimelineEntry `json:"timeline"`
	Recs            []string        `json:"recs"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// ToRankedSuspects projects the ranker's full Suspect list into the
// compact form an RcaReport carries.
func ToRankedSuspects(suspects []Suspect) []RankedSuspect {
	out := make([]RankedSuspect, 0, len(suspects))
	for _, s := range suspects {
		out = append(out, RankedSuspect{PID: s.PID, Name: s.Name, Score: s.Score})
	}
	return out
}
