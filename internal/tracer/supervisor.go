package tracer

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/errs"
	"github.com/dmitriimaksimovdevelop/rcawatch/internal/metrics"
	"go.uber.org/zap"
)

// TracerLost restart policy (spec.md:189): backoff doubles from
// initialRestartBackoff, capped at maxRestartBackoff, and the supervisor
// gives up after maxTracerRestarts consecutive failed restarts.
const (
	initialRestartBackoff = 1 * time.Second
	maxRestartBackoff     = 60 * time.Second
	maxTracerRestarts     = 10
)

// RunSupervised runs reader.Run to completion, and if the stream ends while
// ctx is still live — the tracer subprocess exited, crashed, or its pipe
// broke — reopens it (Reader.Run re-invokes Source.Open, respawning a
// ProcessSource's subprocess) after a backoff. ctx cancellation is always a
// clean stop, never a restart.
//
// RunSupervised owns the reader's queue for the duration of the call: it is
// the only thing that closes it, once, when it returns, so a mid-run
// restart never closes a queue C2 is still reading from.
func RunSupervised(ctx context.Context, reader *Reader, log *zap.Logger, counts *metrics.Counters) error {
	defer reader.queue.Close()

	backoff := initialRestartBackoff
	for attempt := 0; ; attempt++ {
		err := reader.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}

		// A live tracer is expected to run until we cancel it; any return
		// here — error or clean EOF — is the stream ending unexpectedly.
		if attempt >= maxTracerRestarts {
			if err == nil {
				err = fmt.Errorf("stream closed")
			}
			return errs.New(errs.TracerLost, "tracer supervisor",
				fmt.Errorf("gave up after %d restarts: %w", maxTracerRestarts, err))
		}

		if counts != nil {
			counts.TracerRestarts.Add(1)
		}
		if log != nil {
			log.Warn("tracer stream lost, restarting",
				zap.Error(err), zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxRestartBackoff {
			backoff = maxRestartBackoff
		}
	}
}
