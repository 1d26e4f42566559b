package evidence

import (
	"strings"
	"testing"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

func TestGeneratePromptIncludesIncidentAndTopSuspect(t *testing.T) {
	now := time.Unix(1000, 0).UTC()
	incident := model.SpikeIncident{
		ID: 7, DetectedAt: now, WindowStart: now.Add(-60 * time.Second), WindowEnd: now,
		CPUAtConfirm: 95, RAMAtConfirm: 40,
	}
	suspects := []model.Suspect{{PID: 123, Name: "hog.exe", Score: 0.9, CPUPct: 80}}

	prompt := GeneratePrompt(incident, suspects, 0.82, 42, []HostPoint{{TS: now, CPUPct: 95, RAMPct: 40}})

	if !strings.Contains(prompt, "Incident #7") {
		t.Errorf("prompt missing incident id: %q", prompt)
	}
	if !strings.Contains(prompt, "hog.exe") {
		t.Errorf("prompt missing top suspect name: %q", prompt)
	}
	if !strings.Contains(prompt, "42 recent normalized tracer events") {
		t.Errorf("prompt missing event count: %q", prompt)
	}
	if !strings.Contains(prompt, "0.820") {
		t.Errorf("prompt missing local ranking confidence: %q", prompt)
	}
}

func TestGeneratePromptHandlesNoSuspectsOrEvents(t *testing.T) {
	incident := model.SpikeIncident{ID: 1}
	prompt := GeneratePrompt(incident, nil, 0, 0, nil)
	if prompt == "" {
		t.Error("expected a non-empty prompt even with no evidence")
	}
}
