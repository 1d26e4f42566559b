package tracer

import (
	"encoding/json"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/model"
)

// wireEvent mirrors the external tracer's line-delimited JSON shape
// (spec §6 "Input stream"). Required fields: ts, event_type, pid, tid,
// provider, payload. Optional: cpu, net_bytes, disk_bytes, new_pid, new_tid,
// reason. Top-level fields not listed here are dropped by the decoder; they
// are not copied into Payload.
type wireEvent struct {
	TS        string                 `json:"ts"`
	EventType string                 `json:"event_type"`
	PID       int32                  `json:"pid"`
	TID       int32                  `json:"tid"`
	Provider  string                 `json:"provider"`
	Payload   map[string]interface{} `json:"payload"`
	CPU       *int16                 `json:"cpu,omitempty"`
	NetBytes  *int64                 `json:"net_bytes,omitempty"`
	DiskBytes *int64                 `json:"disk_bytes,omitempty"`
	NewPID    *int32                 `json:"new_pid,omitempty"`
	NewTID    *int32                 `json:"new_tid,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
}

// parseLine unmarshals one tracer line into a wireEvent. Callers treat any
// error as MalformedInput (spec §4.1 step 1).
func parseLine(line []byte) (wireEvent, error) {
	var w wireEvent
	err := json.Unmarshal(line, &w)
	return w, err
}

// normalize converts a wireEvent into a model.Event, attaching the
// monotonic receive timestamp and preferring the tracer's ts field for the
// wall timestamp (spec §4.1 step 2, §3 "Event").
func normalize(w wireEvent, recvNanos int64, now time.Time) model.Event {
	wall := now
	if w.TS != "" {
		if t, err := time.Parse(time.RFC3339Nano, w.TS); err == nil {
			wall = t.UTC()
		} else if t, err := time.Parse(time.RFC3339, w.TS); err == nil {
			wall = t.UTC()
		}
	}

	kind := model.ParseKind(w.EventType)
	payload := make(map[string]model.ScalarValue, len(w.Payload)+1)
	for k, v := range w.Payload {
		payload[k] = toScalar(v)
	}
	if kind == model.Other && w.EventType != "" {
		payload["raw_kind"] = model.StringScalar(w.EventType)
	}

	ev := model.Event{
		RecvNanos: recvNanos,
		WallTime:  wall,
		Kind:      kind,
		Provider:  w.Provider,
		NewPID:    w.NewPID,
		NewTID:    w.NewTID,
		Reason:    w.Reason,
		NetBytes:  w.NetBytes,
		DiskBytes: w.DiskBytes,
		CPU:       w.CPU,
		Payload:   payload,
	}
	if w.PID >= 0 {
		pid := w.PID
		ev.PID = &pid
	}
	if w.TID >= 0 {
		tid := w.TID
		ev.TID = &tid
	}
	return ev
}

func toScalar(v interface{}) model.ScalarValue {
	switch t := v.(type) {
	case string:
		return model.StringScalar(t)
	case float64:
		if t == float64(int64(t)) {
			return model.IntScalar(int64(t))
		}
		return model.FloatScalar(t)
	case bool:
		return model.BoolScalar(t)
	case nil:
		return model.NullScalar()
	default:
		// Nested objects/arrays: keep a JSON-encoded string rather than
		// dropping the field; downstream code never touches raw JSON
		// directly (design note §9) but evidence dumps still want it.
		b, err := json.Marshal(t)
		if err != nil {
			return model.NullScalar()
		}
		return model.StringScalar(string(b))
	}
}
