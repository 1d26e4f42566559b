package model

import "time"

// HostSample is a (wall timestamp, cpu_pct, ram_pct) triple produced at a
// fixed cadence by the telemetry aggregator (spec §3 "HostSample").
type HostSample struct {
	WallTime time.Time `json:"ts"`
	CPUPct   float64   `json:"cpu_pct"`
	RAMPct   float64   `json:"ram_pct"`
}

// ProcessSnapshot is a 1-second-bucket summary for one pid (spec §3
// "ProcessSnapshot").
type ProcessSnapshot struct {
	WallTime     time.Time `json:"ts"`
	PID          int32     `json:"pid"`
	Name         string    `json:"name"`
	CmdLine      *string   `json:"cmdline,omitempty"`
	CPUPct       float64   `json:"cpu_pct"`
	RAMPct       float64   `json:"ram_pct"`
	DiskBytes    int64     `json:"disk_bytes"`
	NetBytes     int64     `json:"net_bytes"`
	EventCount   int       `json:"event_count"`
	RAMUnavailable bool    `json:"ram_unavailable,omitempty"`
}
