package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/config"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/errs"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/logging"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/mcpapi"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/tracer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// mcpCmd starts the same ingest/aggregation/detection/ranking/rca pipeline
// as "run", but serves the read-only surface over the Model Context
// Protocol (stdio) instead of HTTP, so an AI agent can query incidents and
// telemetry directly alongside a human-facing dashboard.
func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the Model Context Protocol (MCP) server over stdio",
		Long: `Starts the full watch pipeline (tracer ingest, telemetry aggregation,
spike detection, pid ranking, RCA) and exposes its read-only incident
and telemetry surface as MCP tools over stdio, the same way "run"
exposes it as an HTTP API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath, cmd.Flags())
			if err != nil {
				return errs.New(errs.Fatal, "load config", err)
			}

			log, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
			if err != nil {
				return errs.New(errs.Fatal, "build logger", err)
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			source := &tracer.ProcessSource{Command: cfg.TracerCommand}
			a := buildApp(cfg, log, source)
			source.OnStart = a.pids.TrackSubprocess
			log.Info("rcawatch mcp starting", zap.String("run_id", a.runID))

			go a.aggregator.Run(ctx)
			go a.orchestrator.Run(ctx)

			runErrCh := make(chan error, 1)
			go func() { runErrCh <- tracer.RunSupervised(ctx, a.reader, log, a.counts) }()

			if err := mcpapi.NewServer(version, a.adapter).Start(ctx); err != nil {
				return fmt.Errorf("mcp server: %w", err)
			}

			if runErr := <-runErrCh; runErr != nil && ctx.Err() == nil {
				return fmt.Errorf("tracer supervisor: %w", runErr)
			}
			return nil
		},
	}
}
