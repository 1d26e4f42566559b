package main

import (
	"fmt"
	"os/exec"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/config"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/errs"
	"github.com/spf13/cobra"
)

func newCapabilitiesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Report whether the configured tracer is reachable and print the resolved thresholds",
		Long: `Resolves configuration the same way "run" does, checks whether the
configured tracer command can be found on PATH, and prints the resolved
spike-detection thresholds, attribution/RCA settings and the read API
listen address, without starting a collection run. Queue depths are not
reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath, cmd.Flags())
			if err != nil {
				return errs.New(errs.Fatal, "load config", err)
			}
			return runCapabilities(cfg)
		},
	}
}

func runCapabilities(cfg *config.Snapshot) error {
	fmt.Println("rcawatch capabilities")
	fmt.Println()

	if len(cfg.TracerCommand) == 0 {
		fmt.Println("tracer: no tracer_command configured")
	} else if path, err := exec.LookPath(cfg.TracerCommand[0]); err != nil {
		fmt.Printf("tracer: %q not found on PATH (%v)\n", cfg.TracerCommand[0], err)
	} else {
		fmt.Printf("tracer: %q found at %s\n", cfg.TracerCommand[0], path)
	}

	fmt.Println()
	fmt.Println("spike detection thresholds:")
	fmt.Printf("  baseline_seconds:           %d\n", cfg.BaselineSeconds)
	fmt.Printf("  z_threshold:                %.2f\n", cfg.ZThreshold)
	fmt.Printf("  cpu_floor / ram_floor:      %.1f / %.1f\n", cfg.CPUFloor, cfg.RAMFloor)
	fmt.Printf("  persistence_samples:        %d\n", cfg.PersistenceSamples)
	fmt.Printf("  cooldown_samples:           %d\n", cfg.CooldownSamples)
	fmt.Printf("  cooling_seconds:            %d\n", cfg.CoolingSeconds)
	fmt.Printf("  min_incident_gap_seconds:   %d\n", cfg.MinIncidentGapSeconds)

	fmt.Println()
	fmt.Println("attribution and rca:")
	fmt.Printf("  attribution_window_seconds: %d\n", cfg.AttributionWindowSeconds)
	fmt.Printf("  incident_retention:         %d\n", cfg.IncidentRetention)
	fmt.Printf("  llm_endpoint:               %s\n", describeEndpoint(cfg.LLMEndpoint))
	fmt.Printf("  llm_timeout_seconds:        %d\n", cfg.LLMTimeoutSeconds)

	fmt.Println()
	fmt.Println("read api:")
	fmt.Printf("  listen_addr:                %s\n", cfg.ListenAddr)

	return nil
}

func describeEndpoint(endpoint string) string {
	if endpoint == "" {
		return "(unset — rca falls back to <llm_unavailable> for every incident)"
	}
	return endpoint
}
