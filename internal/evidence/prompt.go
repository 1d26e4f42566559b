// Package evidence assembles the RCA evidence payload sent to the LLM
// collaborator into a human/LLM-readable prompt, and supports dumping a
// confirmed incident's evidence to disk for debugging, generalized from
// the teacher's internal/output/ai_prompt.go (a Linux-sysdiag-specific
// "USE Method" prompt builder) to this service's spike/suspect/RCA domain.
package evidence

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

// HostPoint is one (ts, cpu_pct, ram_pct) entry of a host-series snippet.
// Mirrors internal/rca.HostPoint's shape so callers can pass either without
// this package needing to import internal/rca (which itself will import
// this package to attach the generated prompt to its evidence payload).
type HostPoint struct {
	TS     time.Time
	CPUPct float64
	RAMPct float64
}

// GeneratePrompt builds the natural-language prompt sent alongside the
// evidence payload's structured JSON to the LLM collaborator (spec §4.5,
// §6 "LLM request").
func GeneratePrompt(incident model.SpikeIncident, suspects []model.Suspect, localConfidence float64, eventCount int, hostSeries []HostPoint) string {
	var sb strings.Builder
	sb.WriteString("You are a Windows performance diagnostics expert. ")
	sb.WriteString("A sustained CPU or RAM spike was just confirmed on this host. Analyze the attached evidence and provide:\n")
	sb.WriteString("1. A one- or two-sentence root cause summary\n")
	sb.WriteString("2. The single process most responsible for the spike\n")
	sb.WriteString("3. A confidence score between 0 and 1\n")
	sb.WriteString("4. A short timeline of the events leading up to confirmation\n")
	sb.WriteString("5. Actionable recommendations\n\n")

	sb.WriteString(fmt.Sprintf("Incident #%d confirmed at %s (window %s to %s).\n",
		incident.ID, incident.DetectedAt.Format("15:04:05"), incident.WindowStart.Format("15:04:05"), incident.WindowEnd.Format("15:04:05")))
	sb.WriteString(fmt.Sprintf("CPU at confirmation: %.1f%%, RAM at confirmation: %.1f%%\n", incident.CPUAtConfirm, incident.RAMAtConfirm))

	if len(suspects) > 0 {
		sb.WriteString(fmt.Sprintf("\nTop %d ranked suspects (local ranking confidence: %.3f):\n", len(suspects), localConfidence))
		for _, s := range suspects {
			sb.WriteString(fmt.Sprintf("  pid=%d name=%s score=%.3f cpu=%.1f%% ram=%.1f%% anomaly=%.3f energy=%.3f correlation=%.3f\n",
				s.PID, s.Name, s.Score, s.CPUPct, s.RAMPct, s.Anomaly, s.Energy, s.Correlation))
		}
		sb.WriteString("Your own confidence score will be floored by the local ranking confidence above; do not report a confidence lower than it.\n")
	}

	if len(hostSeries) > 0 {
		first, last := hostSeries[0], hostSeries[len(hostSeries)-1]
		sb.WriteString(fmt.Sprintf("\nHost series: %d samples from %s to %s.\n",
			len(hostSeries), first.TS.Format("15:04:05"), last.TS.Format("15:04:05")))
	}

	if eventCount > 0 {
		sb.WriteString(fmt.Sprintf("\n%d recent normalized tracer events are attached as structured evidence.\n", eventCount))
	}

	sb.WriteString("\nRespond with a JSON document matching the documented RcaReport schema, nothing else.\n")
	return sb.String()
}
