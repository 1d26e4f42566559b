package rca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/metrics"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
	"go.uber.org/zap"
)

func sampleIncident(id int64) model.SpikeIncident {
	now := time.Now().UTC()
	return model.SpikeIncident{ID: id, DetectedAt: now, WindowStart: now.Add(-60 * time.Second), WindowEnd: now}
}

func sampleSuspects() []model.Suspect {
	return []model.Suspect{{PID: 42, Name: "hog.exe", Score: 0.9, CPUPct: 80}}
}

func TestOrchestratorSucceedsOnValidReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply := llmReply{
			CauseSummary:   "hog.exe is pegging the CPU",
			Confidence:     0.9,
			CulpritProcess: model.CulpritProcess{PID: 42, Name: "hog.exe"},
		}
		json.NewEncoder(w).Encode(reply)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second, zap.NewNop())
	o := New(client, zap.NewNop(), metrics.New())

	var mu sync.Mutex
	var got model.RcaReport
	o.OnResult(func(id int64, r model.RcaReport) { mu.Lock(); got = r; mu.Unlock() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	o.Submit(sampleIncident(1), sampleSuspects(), 0.3, nil, nil)
	waitForResult(t, &mu, func() bool { return got.CauseSummary != "" })

	if got.CauseSummary != "hog.exe is pegging the CPU" {
		t.Errorf("CauseSummary = %q", got.CauseSummary)
	}
	if got.RankedSuspects[0].PID != 42 {
		t.Errorf("expected ranked suspects to be the locally-derived list")
	}
}

func TestOrchestratorConfidenceFloorsToLocalRanking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply := llmReply{
			CauseSummary:   "hog.exe is pegging the CPU",
			Confidence:     0.1, // the LLM's arbitrary self-reported confidence
			CulpritProcess: model.CulpritProcess{PID: 42, Name: "hog.exe"},
		}
		json.NewEncoder(w).Encode(reply)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second, zap.NewNop())
	o := New(client, zap.NewNop(), metrics.New())

	var mu sync.Mutex
	var got model.RcaReport
	o.OnResult(func(id int64, r model.RcaReport) { mu.Lock(); got = r; mu.Unlock() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	// the local ranker is far more confident (0.95) than the LLM's 0.1:
	// the higher local floor must win.
	o.Submit(sampleIncident(5), sampleSuspects(), 0.95, nil, nil)
	waitForResult(t, &mu, func() bool { return got.CauseSummary != "" })

	if got.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95 (local ranking floor)", got.Confidence)
	}
}

func TestOrchestratorFallsBackOn4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second, zap.NewNop())
	o := New(client, zap.NewNop(), metrics.New())

	var mu sync.Mutex
	var got model.RcaReport
	o.OnResult(func(id int64, r model.RcaReport) { mu.Lock(); got = r; mu.Unlock() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	o.Submit(sampleIncident(2), sampleSuspects(), 0.3, nil, nil)
	waitForResult(t, &mu, func() bool { return got.CauseSummary != "" })

	if got.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", got.Confidence)
	}
	if got.CauseSummary == "" || got.CauseSummary[0] != '<' {
		t.Errorf("CauseSummary = %q, want an <unavailable: ...> fallback", got.CauseSummary)
	}
	// 4xx is fatal: no retries should have been attempted.
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1 (no retries on 4xx)", n)
	}
}

func TestOrchestratorRetriesOn5xxThenFallsBack(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, zap.NewNop())
	o := New(client, zap.NewNop(), metrics.New())

	var mu sync.Mutex
	var got model.RcaReport
	o.OnResult(func(id int64, r model.RcaReport) { mu.Lock(); got = r; mu.Unlock() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	o.Submit(sampleIncident(3), sampleSuspects(), 0.3, nil, nil)
	waitForResult(t, &mu, func() bool { return got.CauseSummary != "" })

	// maxRetries=2 => up to 3 total attempts on persistent 5xx.
	if n := atomic.LoadInt32(&calls); n < 2 {
		t.Errorf("calls = %d, want at least 2 (5xx should be retried)", n)
	}
}

func TestOrchestratorSchemaInvalidFallsBackCitingTopSuspect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not_a_valid_field": true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second, zap.NewNop())
	o := New(client, zap.NewNop(), metrics.New())

	var mu sync.Mutex
	var got model.RcaReport
	o.OnResult(func(id int64, r model.RcaReport) { mu.Lock(); got = r; mu.Unlock() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	o.Submit(sampleIncident(4), sampleSuspects(), 0.3, nil, nil)
	waitForResult(t, &mu, func() bool { return got.CauseSummary != "" })

	if got.RankedSuspects[0].PID != 42 {
		t.Fatalf("expected locally-derived suspects retained on schema failure")
	}
}

func waitForResult(t *testing.T, mu *sync.Mutex, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		ok := done()
		mu.Unlock()
		if ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for orchestrator result")
}
