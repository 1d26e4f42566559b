package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/config"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/errs"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/logging"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/tracer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(configPath *string) *cobra.Command {
	var (
		verbose       bool
		listenAddr    string
		llmEndpoint   string
		tracerCommand []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch live host telemetry from the configured tracer and serve the read API",
		Long: `Spawns the configured tracer subprocess, ingests its kernel events,
aggregates rolling host/pid telemetry, detects CPU/RAM spikes, ranks the
responsible pids, and requests root-cause analysis for each confirmed
incident from the configured LLM collaborator.

If the tracer subprocess exits unexpectedly it is restarted with a backoff
that doubles from 1s up to 60s; after 10 failed restarts rcawatch exits
with code 3 (spec.md:189).

Runs until interrupted (Ctrl-C / SIGTERM).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath, cmd.Flags())
			if err != nil {
				return errs.New(errs.Fatal, "load config", err)
			}

			level := cfg.LogLevel
			if verbose {
				level = "debug"
			}
			log, err := logging.New(level, cfg.LogEncoding)
			if err != nil {
				return errs.New(errs.Fatal, "build logger", err)
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			source := &tracer.ProcessSource{Command: cfg.TracerCommand}
			a := buildApp(cfg, log, source)
			source.OnStart = a.pids.TrackSubprocess
			log.Info("rcawatch starting", zap.String("run_id", a.runID), zap.Strings("tracer_command", cfg.TracerCommand))

			srv := &http.Server{Addr: cfg.ListenAddr, Handler: a.handler}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("read api server exited", zap.Error(err))
				}
			}()

			go a.aggregator.Run(ctx)
			go a.orchestrator.Run(ctx)

			runErr := tracer.RunSupervised(ctx, a.reader, log, a.counts)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.LLMTimeout())
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)

			if runErr != nil && ctx.Err() == nil {
				return fmt.Errorf("tracer supervisor: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen-addr", "", "override the read API listen address (default from config)")
	cmd.Flags().StringVar(&llmEndpoint, "llm-endpoint", "", "override the RCA collaborator endpoint (default from config)")
	cmd.Flags().StringSliceVar(&tracerCommand, "tracer-command", nil, "override the tracer subprocess argv (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}
