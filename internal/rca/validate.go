package rca

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/errs"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

// llmReply mirrors the wire shape the LLM collaborator is expected to
// return (spec §6 "Response: a JSON document matching RcaReport").
type llmReply struct {
	CauseSummary   string                `json:"cause_summary"`
	Confidence     float64               `json:"confidence"`
	CulpritProcess model.CulpritProcess  `json:"culprit_process"`
	ResourceImpact model.ResourceImpact  `json:"resource_impact"`
	RankedSuspects []model.RankedSuspect `json:"ranked_suspects"`
	Timeline       []model.TimelineEntry `json:"timeline"`
	Recs           []string              `json:"recs"`
}

// ParseReply validates raw against the expected RcaReport schema, clamping
// numeric ranges, and returns the report stamped with generatedAt. On
// schema failure it returns an error classified errs.SchemaInvalid; callers
// fall back to FallbackReport.
func ParseReply(raw []byte, generatedAt time.Time) (model.RcaReport, error) {
	var reply llmReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return model.RcaReport{}, errs.New(errs.SchemaInvalid, "rca.validate.unmarshal", err)
	}
	if reply.CauseSummary == "" {
		return model.RcaReport{}, errs.New(errs.SchemaInvalid, "rca.validate.cause_summary",
			fmt.Errorf("cause_summary is required"))
	}
	if reply.CulpritProcess.PID == 0 {
		return model.RcaReport{}, errs.New(errs.SchemaInvalid, "rca.validate.culprit_process",
			fmt.Errorf("culprit_process.pid is required"))
	}

	return model.RcaReport{
		CauseSummary:   reply.CauseSummary,
		Confidence:     clamp01(reply.Confidence),
		CulpritProcess: reply.CulpritProcess,
		ResourceImpact: model.ResourceImpact{
			CPUSpikePercent: clampPct(reply.ResourceImpact.CPUSpikePercent),
			RAMSpikePercent: clampPct(reply.ResourceImpact.RAMSpikePercent),
		},
		RankedSuspects: reply.RankedSuspects,
		Timeline:       reply.Timeline,
		Recs:           reply.Recs,
		GeneratedAt:    generatedAt,
	}, nil
}

// FallbackReport builds the degraded RcaReport used when the LLM is
// unavailable or its reply fails schema validation (spec §4.5): the
// locally-derived suspect list is retained, cause_summary is
// "<unavailable: reason>", the top suspect fills culprit_process and
// resource_impact, and confidence is 0. SchemaInvalidFallback builds on it
// with a summary that names the top suspect.
func FallbackReport(reason string, suspects []model.Suspect, generatedAt time.Time) model.RcaReport {
	summary := fmt.Sprintf("<unavailable: %s>", reason)
	var culprit model.CulpritProcess
	var impact model.ResourceImpact
	if len(suspects) > 0 {
		top := suspects[0]
		culprit = model.CulpritProcess{
			PID:       top.PID,
			Name:      top.Name,
			CmdLine:   top.CmdLine,
			CPUPct:    top.CPUPct,
			RAMPct:    top.RAMPct,
			DiskBytes: top.DiskBytes,
		}
		impact = model.ResourceImpact{CPUSpikePercent: top.CPUPct, RAMSpikePercent: top.RAMPct}
	}
	return model.RcaReport{
		CauseSummary:   summary,
		Confidence:     0,
		CulpritProcess: culprit,
		ResourceImpact: impact,
		RankedSuspects: model.ToRankedSuspects(suspects),
		GeneratedAt:    generatedAt,
	}
}

// SchemaInvalidFallback is the degraded report used on schema validation
// failure, which cites the top locally-derived suspect by name rather than
// a generic reason string (spec §4.5: "the text field is set to a fallback
// string that cites the top suspect").
func SchemaInvalidFallback(suspects []model.Suspect, generatedAt time.Time) model.RcaReport {
	report := FallbackReport("schema_invalid", suspects, generatedAt)
	if len(suspects) > 0 {
		report.CauseSummary = fmt.Sprintf("<unavailable: schema_invalid, top suspect %s (pid %d)>",
			suspects[0].Name, suspects[0].PID)
	}
	return report
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
