// Package model defines the data types shared across rcawatch's pipeline:
// normalized tracer events, rolling samples, spike incidents, and RCA
// reports. These types are what gets serialized to JSON for the read API,
// the LLM request/response, and incident evidence dumps.
package model

import "time"

// Kind enumerates the normalized event kinds C1 recognizes (spec §3).
// Unknown tracer event_type strings fold to Other with the original string
// preserved under Payload["raw_kind"].
type Kind string

const (
	ProcessStart   Kind = "process_start"
	ProcessStop    Kind = "process_stop"
	ThreadStart    Kind = "thread_start"
	ContextSwitch  Kind = "context_switch"
	TCPSend        Kind = "tcp_send"
	TCPRecv        Kind = "tcp_recv"
	FileRead       Kind = "file_read"
	FileWrite      Kind = "file_write"
	CPUSample      Kind = "cpu_sample"
	MemSample      Kind = "mem_sample"
	GC             Kind = "gc"
	Exception      Kind = "exception"
	Other          Kind = "other"
)

// knownKinds is used to fold unrecognized tracer event_type strings to Other.
var knownKinds = map[string]Kind{
	"process_start":   ProcessStart,
	"process_stop":    ProcessStop,
	"thread_start":    ThreadStart,
	"context_switch":  ContextSwitch,
	"tcp_send":        TCPSend,
	"tcp_recv":        TCPRecv,
	"file_read":       FileRead,
	"file_write":      FileWrite,
	"cpu_sample":      CPUSample,
	"mem_sample":      MemSample,
	"gc":              GC,
	"exception":       Exception,
}

// ParseKind normalizes a raw tracer event_type string into a Kind. Unknown
// strings fold to Other; callers should preserve the original string in the
// event's payload under "raw_kind".
func ParseKind(raw string) Kind {
	if k, ok := knownKinds[raw]; ok {
		return k
	}
	return Other
}

// ScalarValue is a tagged scalar in an event's free-form payload map
// (design note §9: "decoded once at ingest; downstream code never touches
// raw JSON"). Exactly one of the fields is meaningful, selected by Type.
type ScalarValue struct {
	Type string  `json:"type"` // "string" | "int" | "float" | "bool" | "null"
	Str  string  `json:"str,omitempty"`
	Int  int64   `json:"int,omitempty"`
	Flt  float64 `json:"flt,omitempty"`
	Bool bool    `json:"bool,omitempty"`
}

func StringScalar(s string) ScalarValue  { return ScalarValue{Type: "string", Str: s} }
func IntScalar(v int64) ScalarValue      { return ScalarValue{Type: "int", Int: v} }
func FloatScalar(v float64) ScalarValue  { return ScalarValue{Type: "float", Flt: v} }
func BoolScalar(v bool) ScalarValue      { return ScalarValue{Type: "bool", Bool: v} }
func NullScalar() ScalarValue            { return ScalarValue{Type: "null"} }

// Event is a single normalized tracer record (spec §3 "Event").
type Event struct {
	// RecvNanos is the monotonic receive timestamp, nanoseconds since
	// process start. Used for ordering and slack-bound checks; never
	// serialized to external consumers as a meaningful absolute value.
	RecvNanos int64 `json:"recv_nanos"`
	// WallTime is UTC, preferring the tracer's "ts" field; synthesized on
	// receipt if absent or unparsable.
	WallTime time.Time `json:"ts"`
	Kind     Kind       `json:"event_type"`
	PID      *int32     `json:"pid,omitempty"`
	TID      *int32     `json:"tid,omitempty"`
	CPU      *int16     `json:"cpu,omitempty"`
	Provider string     `json:"provider"`

	NewPID *int32 `json:"new_pid,omitempty"`
	NewTID *int32 `json:"new_tid,omitempty"`
	Reason string `json:"reason,omitempty"`

	NetBytes  *int64 `json:"net_bytes,omitempty"`
	DiskBytes *int64 `json:"disk_bytes,omitempty"`

	Payload map[string]ScalarValue `json:"payload,omitempty"`
}
