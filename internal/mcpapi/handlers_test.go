package mcpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/readapi"
	"github.com/mark3labs/mcp-go/mcp"
)

type fakeStore struct {
	incidents map[int64]model.SpikeIncident
	order     []int64
	latest    *model.RcaReport
}

func (f *fakeStore) Get(id int64) (model.SpikeIncident, bool) {
	inc, ok := f.incidents[id]
	return inc, ok
}

func (f *fakeStore) List(limit int, sinceUnixNano int64) []model.SpikeIncident {
	out := make([]model.SpikeIncident, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0; i-- {
		out = append(out, f.incidents[f.order[i]])
	}
	return out
}

func (f *fakeStore) LatestRCA() (model.RcaReport, bool) {
	if f.latest == nil {
		return model.RcaReport{}, false
	}
	return *f.latest, true
}

type fakeTelemetry struct {
	host   []model.HostSample
	events []model.Event
}

func (f *fakeTelemetry) HostWindow(seconds int) []model.HostSample { return f.host }
func (f *fakeTelemetry) RecentEvents(windowSeconds int, max int) []model.Event {
	return f.events
}

func callToolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestHandleGetSpikeRequiresID(t *testing.T) {
	s := NewServer("test", readapi.New(&fakeStore{incidents: map[int64]model.SpikeIncident{}}, &fakeTelemetry{}))
	result, err := s.handleGetSpike(context.Background(), callToolRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected an error result when id is missing")
	}
}

func TestHandleGetSpikeReturnsIncident(t *testing.T) {
	store := &fakeStore{incidents: map[int64]model.SpikeIncident{
		3: {ID: 3, DetectedAt: time.Unix(1000, 0).UTC()},
	}}
	s := NewServer("test", readapi.New(store, &fakeTelemetry{}))

	result, err := s.handleGetSpike(context.Background(), callToolRequest(map[string]interface{}{"id": float64(3)}))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}
	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, `"id":3`) {
		t.Errorf("result text = %q, want it to contain the incident id", text)
	}
}

func TestHandleGetLatestRCAWhenNoneAssigned(t *testing.T) {
	s := NewServer("test", readapi.New(&fakeStore{}, &fakeTelemetry{}))
	result, err := s.handleGetLatestRCA(context.Background(), callToolRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, "no incident") {
		t.Errorf("result text = %q, want a no-rca-yet message", text)
	}
}

func TestHandleGetTelemetryWindowDefaultsSeconds(t *testing.T) {
	tel := &fakeTelemetry{host: []model.HostSample{{WallTime: time.Unix(1, 0).UTC(), CPUPct: 5, RAMPct: 6}}}
	s := NewServer("test", readapi.New(&fakeStore{}, tel))

	result, err := s.handleGetTelemetryWindow(context.Background(), callToolRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, `"cpu":5`) {
		t.Errorf("result text = %q", text)
	}
}
