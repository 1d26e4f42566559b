package spike

import (
	"testing"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

func testConfig() Config {
	return Config{
		BaselineSeconds:       120,
		ZThreshold:            3.0,
		CPUFloor:              70,
		RAMFloor:              80,
		PersistenceSamples:    3,
		CooldownSamples:       5,
		CoolingSeconds:        30,
		MinIncidentGapSeconds: 60,
	}
}

func feedQuiet(t *testing.T, d *Detector, n int, start time.Time) time.Time {
	t.Helper()
	ts := start
	for i := 0; i < n; i++ {
		d.Observe(model.HostSample{WallTime: ts, CPUPct: 10, RAMPct: 10}, 60*time.Second)
		ts = ts.Add(time.Second)
	}
	return ts
}

func TestColdStartSuppressesTriggers(t *testing.T) {
	d := New(testConfig())
	ts := time.Unix(0, 0).UTC()

	for i := 0; i < coldStartSamples-1; i++ {
		d.Observe(model.HostSample{WallTime: ts, CPUPct: 95, RAMPct: 95}, 60*time.Second)
		ts = ts.Add(time.Second)
		if d.State() != Normal {
			t.Fatalf("sample %d: state = %v, want Normal during cold start", i, d.State())
		}
	}
}

func TestPersistentSpikeConfirmsAndFiresCallback(t *testing.T) {
	d := New(testConfig())
	var got []model.SpikeIncident
	d.OnConfirmed(func(i model.SpikeIncident) { got = append(got, i) })

	ts := feedQuiet(t, d, 40, time.Unix(0, 0).UTC())

	for i := 0; i < testConfig().PersistenceSamples; i++ {
		d.Observe(model.HostSample{WallTime: ts, CPUPct: 95, RAMPct: 20}, 60*time.Second)
		ts = ts.Add(time.Second)
	}

	if d.State() != Confirmed {
		t.Fatalf("state = %v, want Confirmed", d.State())
	}
	if len(got) != 1 {
		t.Fatalf("incidents fired = %d, want 1", len(got))
	}
	if got[0].ID != 1 {
		t.Errorf("incident id = %d, want 1", got[0].ID)
	}
	if got[0].CPUAtConfirm != 95 {
		t.Errorf("CPUAtConfirm = %v, want 95", got[0].CPUAtConfirm)
	}
}

func TestCooldownThenCoolingThenNormal(t *testing.T) {
	cfg := testConfig()
	d := New(cfg)
	ts := feedQuiet(t, d, 40, time.Unix(0, 0).UTC())

	for i := 0; i < cfg.PersistenceSamples; i++ {
		d.Observe(model.HostSample{WallTime: ts, CPUPct: 95, RAMPct: 20}, 60*time.Second)
		ts = ts.Add(time.Second)
	}
	if d.State() != Confirmed {
		t.Fatalf("state = %v, want Confirmed", d.State())
	}

	for i := 0; i < cfg.CooldownSamples; i++ {
		d.Observe(model.HostSample{WallTime: ts, CPUPct: 10, RAMPct: 10}, 60*time.Second)
		ts = ts.Add(time.Second)
	}
	if d.State() != Cooling {
		t.Fatalf("state = %v, want Cooling", d.State())
	}

	ts = ts.Add(time.Duration(cfg.CoolingSeconds) * time.Second)
	d.Observe(model.HostSample{WallTime: ts, CPUPct: 10, RAMPct: 10}, 60*time.Second)
	if d.State() != Normal {
		t.Fatalf("state = %v, want Normal after cooling elapses", d.State())
	}
}

func TestRetriggerDuringCoolingWithinGapDoesNotCreateIncident(t *testing.T) {
	cfg := testConfig()
	d := New(cfg)
	var got []model.SpikeIncident
	d.OnConfirmed(func(i model.SpikeIncident) { got = append(got, i) })

	ts := feedQuiet(t, d, 40, time.Unix(0, 0).UTC())
	for i := 0; i < cfg.PersistenceSamples; i++ {
		d.Observe(model.HostSample{WallTime: ts, CPUPct: 95, RAMPct: 20}, 60*time.Second)
		ts = ts.Add(time.Second)
	}
	for i := 0; i < cfg.CooldownSamples; i++ {
		d.Observe(model.HostSample{WallTime: ts, CPUPct: 10, RAMPct: 10}, 60*time.Second)
		ts = ts.Add(time.Second)
	}
	if d.State() != Cooling {
		t.Fatalf("state = %v, want Cooling", d.State())
	}

	// re-trigger a couple seconds later, well within min_incident_gap_seconds
	ts = ts.Add(2 * time.Second)
	d.Observe(model.HostSample{WallTime: ts, CPUPct: 95, RAMPct: 20}, 60*time.Second)

	if d.State() != Confirmed {
		t.Fatalf("state = %v, want Confirmed after retrigger", d.State())
	}
	if len(got) != 1 {
		t.Fatalf("incidents fired = %d, want 1 (no new incident within gap)", len(got))
	}
}

func TestFallingEdgeRejectsCandidateTransition(t *testing.T) {
	d := New(testConfig())
	ts := feedQuiet(t, d, coldStartSamples-trendSamples+1, time.Unix(0, 0).UTC())

	// the first cold-start-eligible sample's baseline window ends on this
	// descending run: both cpu and ram are trending down, so the would-be
	// Candidate transition must be rejected even though each sample alone
	// clears both the z-score and absolute-floor trigger conditions.
	readings := []float64{95, 94, 93, 92, 91}
	for _, v := range readings {
		d.Observe(model.HostSample{WallTime: ts, CPUPct: v, RAMPct: v}, 60*time.Second)
		ts = ts.Add(time.Second)
	}
	if d.State() != Normal {
		t.Fatalf("state = %v, want Normal (falling edge should suppress Candidate)", d.State())
	}
}
