package ranker

import (
	"testing"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

// fakeSource implements TelemetrySource over fixed in-memory data, in the
// spirit of the corpus's plain-struct test fakes.
type fakeSource struct {
	active    []int32
	snaps     map[int32][]model.ProcessSnapshot
	host      []model.HostSample
	identities map[int32]string
}

func (f *fakeSource) ActivePIDsAt(window time.Duration, asOf time.Time) []int32 { return f.active }
func (f *fakeSource) ProcessSnapshotsAt(pid int32, window time.Duration, asOf time.Time) []model.ProcessSnapshot {
	return f.snaps[pid]
}
func (f *fakeSource) HostWindow(seconds int) []model.HostSample { return f.host }
func (f *fakeSource) Identity(pid int32) (string, *string)      { return f.identities[pid], nil }

func buildScenario() *fakeSource {
	base := time.Unix(100000, 0).UTC()
	var host []model.HostSample
	for i := 0; i < 60; i++ {
		host = append(host, model.HostSample{
			WallTime: base.Add(time.Duration(i) * time.Second),
			CPUPct:   10 + float64(i%3), // quiet, low-variance baseline
			RAMPct:   20,
		})
	}

	// pid 100: tracks the host's rising tail closely and uses most of the CPU
	var hot []model.ProcessSnapshot
	for i := 30; i < 60; i++ {
		hot = append(hot, model.ProcessSnapshot{
			WallTime: base.Add(time.Duration(i) * time.Second),
			PID:      100,
			Name:     "hog.exe",
			CPUPct:   80 + float64(i%5),
			RAMPct:   10,
		})
	}
	// pid 200: no cpu or ram use at all (its anomaly against this host
	// baseline is still high, so it is ranked here)
	var idle []model.ProcessSnapshot
	for i := 30; i < 60; i++ {
		idle = append(idle, model.ProcessSnapshot{
			WallTime: base.Add(time.Duration(i) * time.Second),
			PID:      200,
			Name:     "idle.exe",
			CPUPct:   0,
			RAMPct:   0,
		})
	}

	return &fakeSource{
		active: []int32{100, 200},
		snaps:  map[int32][]model.ProcessSnapshot{100: hot, 200: idle},
		host:   host,
		identities: map[int32]string{100: "hog.exe", 200: "idle.exe"},
	}
}

func TestRankPlacesHighUsagePIDFirst(t *testing.T) {
	src := buildScenario()
	r := New(Config{AttributionWindowSeconds: 30, BaselineSeconds: 60}, src)

	asOf := time.Unix(100000, 0).UTC().Add(59 * time.Second)
	suspects, confidence := r.Rank(asOf)

	if len(suspects) == 0 {
		t.Fatal("expected at least one suspect")
	}
	if suspects[0].PID != 100 {
		t.Errorf("top suspect pid = %d, want 100", suspects[0].PID)
	}
	if confidence <= 0 {
		t.Errorf("confidence = %v, want > 0", confidence)
	}
}

func TestRankExcludesZeroComponentPID(t *testing.T) {
	src := buildScenario()
	// an idle host: pid 200's all-zero usage then sits exactly on the host
	// baseline, so its anomaly, energy and correlation are all 0
	for i := range src.host {
		src.host[i].CPUPct = 0
		src.host[i].RAMPct = 0
	}
	r := New(Config{AttributionWindowSeconds: 30, BaselineSeconds: 60}, src)
	asOf := time.Unix(100000, 0).UTC().Add(59 * time.Second)

	suspects, _ := r.Rank(asOf)
	for _, s := range suspects {
		if s.PID == 200 {
			t.Errorf("pid 200 (idle) should have been excluded, got suspect %+v", s)
		}
	}
}

func TestRankExcludesOwnPID(t *testing.T) {
	src := buildScenario()
	r := New(Config{AttributionWindowSeconds: 30, BaselineSeconds: 60}, src)
	r.Exclude(func(pid int32) bool { return pid == 100 })
	asOf := time.Unix(100000, 0).UTC().Add(59 * time.Second)

	suspects, _ := r.Rank(asOf)
	for _, s := range suspects {
		if s.PID == 100 {
			t.Errorf("pid 100 should have been excluded, got suspect %+v", s)
		}
	}
}

func TestRankCapsAtTenSuspects(t *testing.T) {
	src := buildScenario()
	for pid := int32(300); pid < 315; pid++ {
		var snaps []model.ProcessSnapshot
		for i := 30; i < 60; i++ {
			snaps = append(snaps, model.ProcessSnapshot{
				WallTime: time.Unix(100000, 0).UTC().Add(time.Duration(i) * time.Second),
				PID:      pid,
				CPUPct:   50 + float64(pid%10),
				RAMPct:   50,
			})
		}
		src.snaps[pid] = snaps
		src.active = append(src.active, pid)
	}
	r := New(Config{AttributionWindowSeconds: 30, BaselineSeconds: 60}, src)
	asOf := time.Unix(100000, 0).UTC().Add(59 * time.Second)

	suspects, _ := r.Rank(asOf)
	if len(suspects) > 10 {
		t.Errorf("suspects = %d, want <= 10", len(suspects))
	}
}
