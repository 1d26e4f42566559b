package tracer

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/metrics"
	"go.uber.org/zap"
)

// stringSource adapts a fixed string body into a Source for tests, in the
// spirit of the teacher's CommandRunner fakes (internal/collector.go).
type stringSource struct{ body string }

func (s *stringSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func TestReaderNormalizesAndCountsMalformed(t *testing.T) {
	body := strings.Join([]string{
		`{"ts":"2024-01-01T00:00:00Z","event_type":"cpu_sample","pid":10,"tid":10,"provider":"p","payload":{}}`,
		`not json at all`,
		`{"ts":"2024-01-01T00:00:01Z","event_type":"tcp_send","pid":10,"tid":10,"provider":"p","payload":{},"net_bytes":128}`,
	}, "\n")

	counts := metrics.New()
	q := NewQueue(64)
	r := NewReader(&stringSource{body: body}, q, zap.NewNop(), counts, time.Now())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	q.Close() // Run no longer owns the queue's lifecycle (RunSupervised does)

	if got := counts.MalformedLines.Load(); got != 1 {
		t.Errorf("MalformedLines = %d, want 1", got)
	}

	var events []int64
	for ev := range q.C() {
		if ev.NetBytes != nil {
			events = append(events, *ev.NetBytes)
		} else {
			events = append(events, -1)
		}
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1] != 128 {
		t.Errorf("second event net_bytes = %d, want 128", events[1])
	}
}

func TestReaderDropsOutOfOrderPastSlackBound(t *testing.T) {
	body := strings.Join([]string{
		`{"ts":"2024-01-01T00:00:10Z","event_type":"other_thing","pid":-1,"tid":-1,"provider":"p","payload":{}}`,
		`{"ts":"2024-01-01T00:00:05Z","event_type":"other_thing","pid":-1,"tid":-1,"provider":"p","payload":{}}`,
	}, "\n")

	counts := metrics.New()
	q := NewQueue(64)
	r := NewReader(&stringSource{body: body}, q, zap.NewNop(), counts, time.Now())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := counts.OutOfOrderDropped.Load(); got != 1 {
		t.Errorf("OutOfOrderDropped = %d, want 1", got)
	}
}
