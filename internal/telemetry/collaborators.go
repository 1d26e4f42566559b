package telemetry

// HostCounterSource is the external syscall collaborator exposing
// whole-host CPU and memory utilization (spec §4.2: "an external syscall
// collaborator exposing cpu_total_pct and ram_used_pct"). On Windows this
// wraps PDH/performance-counter queries; it is out of scope for this
// package and is supplied by the caller.
type HostCounterSource interface {
	CPUTotalPct() (float64, error)
	RAMUsedPct() (float64, error)
}

// WorkingSetSource is the external syscall collaborator that resolves a
// pid's working-set memory share, consulted once per tick per active pid
// (spec §4.2). Failure leaves ram_pct at 0 and sets RAMUnavailable.
type WorkingSetSource interface {
	WorkingSetPct(pid int32) (float64, error)
}

// NumCores reports the number of logical cores used to normalize per-pid
// CPU attribution (spec §4.2: "pid_cpu_time / (num_cores · tick_duration)").
// Abstracted so tests can pin a deterministic core count.
type NumCores interface {
	Cores() int
}

type staticCores int

func (c staticCores) Cores() int { return int(c) }

// StaticCores wraps a fixed core count for tests and simple deployments.
func StaticCores(n int) NumCores { return staticCores(n) }
