package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/config"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/errs"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/evidence"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/logging"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/tracer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// replayDrainGrace is how long replay waits after the captured file reaches
// EOF for the last batched tick and any in-flight RCA request to settle
// before the run is torn down and incidents are dumped.
const replayDrainGrace = 2500 * time.Millisecond

func newReplayCmd(configPath *string) *cobra.Command {
	var (
		dumpPath   string
		dumpFormat string
	)

	cmd := &cobra.Command{
		Use:   "replay <captured-events-file>",
		Short: "Replay a captured line-delimited tracer event file offline",
		Long: `Feeds a previously captured line-delimited event file through the same
ingest, aggregation, spike-detection, ranking, and RCA pipeline used by
"run", without spawning the live tracer subprocess.

If the config's llm_endpoint is unset (the default for replay), every
confirmed incident's RCA falls back to an <unavailable: ...> report
(llm_unavailable, or shutdown for incidents still queued when the replay
is torn down) the way a live run would if the collaborator were down; the ranked suspects
and evidence are still fully reproduced. Incidents are dumped to
--dump-to in --dump-format on completion.`,
		Args: cobra.ExactArgs(1),
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

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			source := &tracer.FileSource{Path: args[0]}
			a := buildApp(cfg, log, source)
			log.Info("replay starting", zap.String("run_id", a.runID), zap.String("file", args[0]))

			go a.aggregator.Run(ctx)
			go a.orchestrator.Run(ctx)

			// Unlike "run"/"mcp", a captured file reaching EOF is normal
			// completion, not a TracerLost condition, so replay calls Run
			// once directly rather than through tracer.RunSupervised and
			// closes the queue itself afterward.
			if err := a.reader.Run(ctx); err != nil {
				a.queue.Close()
				return fmt.Errorf("replay file: %w", err)
			}
			a.queue.Close()

			time.Sleep(replayDrainGrace)
			cancel()
			time.Sleep(replayDrainGrace)

			incidents := a.incidents.List(0, 0)
			log.Info("replay complete", zap.Int("incidents", len(incidents)))
			return evidence.WriteDumpFile(incidents, dumpPath, dumpFormat)
		},
	}

	cmd.Flags().StringVar(&dumpPath, "dump-to", "-", "path to write the reproduced incidents to (- for stdout)")
	cmd.Flags().StringVar(&dumpFormat, "dump-format", "json", "dump format: json or yaml")
	return cmd
}
