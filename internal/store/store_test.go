package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

func incidentAt(id int64, t time.Time) model.SpikeIncident {
	return model.SpikeIncident{ID: id, DetectedAt: t, WindowStart: t.Add(-60 * time.Second), WindowEnd: t}
}

func TestInsertAssignsStrictlyIncreasingGapFreeOrder(t *testing.T) {
	s := New(10)
	base := time.Unix(1000, 0).UTC()
	for i := int64(1); i <= 5; i++ {
		s.Insert(incidentAt(i, base.Add(time.Duration(i)*time.Second)))
	}

	list := s.List(0, 0)
	if len(list) != 5 {
		t.Fatalf("list len = %d, want 5", len(list))
	}
	for i, inc := range list {
		want := int64(5 - i)
		if inc.ID != want {
			t.Errorf("list[%d].ID = %d, want %d (newest first)", i, inc.ID, want)
		}
	}
}

func TestFIFOEvictionAtRetentionCap(t *testing.T) {
	s := New(3)
	base := time.Unix(2000, 0).UTC()
	for i := int64(1); i <= 5; i++ {
		s.Insert(incidentAt(i, base.Add(time.Duration(i)*time.Second)))
	}

	list := s.List(0, 0)
	if len(list) != 3 {
		t.Fatalf("list len = %d, want 3 (retention cap)", len(list))
	}
	if _, ok := s.Get(1); ok {
		t.Error("incident 1 should have been evicted")
	}
	if _, ok := s.Get(5); !ok {
		t.Error("incident 5 should still be present")
	}
}

func TestUpdateRCAIsOneTimeOnly(t *testing.T) {
	s := New(10)
	s.Insert(incidentAt(1, time.Unix(3000, 0).UTC()))

	first := model.RcaReport{CauseSummary: "first"}
	if !s.UpdateRCA(1, first) {
		t.Fatal("first UpdateRCA should succeed")
	}
	second := model.RcaReport{CauseSummary: "second"}
	if s.UpdateRCA(1, second) {
		t.Fatal("second UpdateRCA should be a no-op")
	}

	inc, _ := s.Get(1)
	if inc.Rca.CauseSummary != "first" {
		t.Errorf("CauseSummary = %q, want %q (rca set at most once)", inc.Rca.CauseSummary, "first")
	}
}

func TestLatestRCAReturnsNewestWithRCA(t *testing.T) {
	s := New(10)
	base := time.Unix(4000, 0).UTC()
	s.Insert(incidentAt(1, base))
	s.Insert(incidentAt(2, base.Add(time.Second)))
	s.UpdateRCA(1, model.RcaReport{CauseSummary: "old"})

	report, ok := s.LatestRCA()
	if !ok || report.CauseSummary != "old" {
		t.Fatalf("LatestRCA = %+v, ok=%v, want the only incident with an rca", report, ok)
	}

	s.UpdateRCA(2, model.RcaReport{CauseSummary: "new"})
	report, ok = s.LatestRCA()
	if !ok || report.CauseSummary != "new" {
		t.Fatalf("LatestRCA = %+v, want the newest incident's rca", report)
	}
}

func TestSerializeReparseRoundTrip(t *testing.T) {
	s := New(10)
	inc := incidentAt(7, time.Unix(5000, 0).UTC())
	inc.ETWEvents = []model.Event{{WallTime: inc.DetectedAt, Kind: model.Other, Provider: "p"}}
	s.Insert(inc)
	s.UpdateRCA(7, model.RcaReport{CauseSummary: "x", Confidence: 0.5})

	got, _ := s.Get(7)
	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var roundTripped model.SpikeIncident
	if err := json.Unmarshal(raw, &roundTripped); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !roundTripped.DetectedAt.Equal(got.DetectedAt) || roundTripped.Rca.CauseSummary != got.Rca.CauseSummary {
		t.Errorf("round trip mismatch: got %+v, want %+v", roundTripped, got)
	}
}
