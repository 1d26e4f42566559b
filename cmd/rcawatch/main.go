// rcawatch — Windows CPU/RAM spike watcher with LLM-assisted root-cause
// analysis.
//
// Ingests normalized kernel events from an external ETW tracer, maintains
// rolling host/pid telemetry, detects sustained CPU/RAM spikes, ranks the
// pids responsible, and hands each confirmed incident to an external LLM
// collaborator for a structured root-cause report. Results are retained in
// an in-memory incident store and exposed over a read-only HTTP/MCP
// surface.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/errs"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "fatal panic:", r)
			os.Exit(4)
		}
	}()

	rootCmd := &cobra.Command{
		Use:     "rcawatch",
		Short:   "Windows CPU/RAM spike watcher with LLM-assisted root-cause analysis",
		Version: version,
		Long: `rcawatch — single Go binary watching Windows host CPU/RAM utilization.

Reads normalized kernel events from an external ETW tracer subprocess,
maintains rolling host and per-pid telemetry, detects sustained spikes
with a robust-statistics baseline, ranks the pids responsible, and
requests a root-cause report from an external LLM collaborator.

Confirmed incidents and their RCA reports are retained in memory and
served read-only over HTTP and over the Model Context Protocol.`,
	}

	var configPath string
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (optional; env RCAWATCH_* and defaults otherwise)")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newReplayCmd(&configPath),
		newCapabilitiesCmd(&configPath),
		newMCPCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a RunE error to the process exit code spec.md §6/§7
// assigns it. Propagation policy: only Fatal and an exhausted TracerLost
// ever reach here (every other error kind is handled locally with a
// counter and degraded output, per errs.Kind.Propagates()) — Fatal is
// configuration/out-of-memory (exit 2), exhausted TracerLost is the
// supervisor giving up on restarting the tracer subprocess (exit 3).
// Anything else (cobra usage errors, an unclassified failure) exits 1.
func exitCode(err error) int {
	var classified *errs.Error
	if errors.As(err, &classified) && classified.Kind.Propagates() {
		if classified.Kind == errs.Fatal {
			return 2
		}
		return 3
	}
	return 1
}
