package monitor

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RunOnSchedule runs one batch immediately, then keeps running the
// same pipeline on the given cron schedule until ctx is canceled.
//
// Overlapping runs would race on the seen store, so a tick that fires
// while the previous run is still going is skipped.
func RunOnSchedule(ctx context.Context, spec string, r *Runner) error {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger{log: r.Log}),
	))

	_, err := c.AddFunc(spec, func() {
		if err := r.Run(ctx); err != nil {
			r.Log.Error().Err(err).Msg("scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	// First run happens right away; a fatal failure here is almost
	// always bad configuration, so bail instead of ticking forever.
	if err := r.Run(ctx); err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	return nil
}

// cronLogger adapts zerolog to the cron.Logger interface.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug().Fields(kv).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error().Err(err).Fields(kv).Msg(msg)
}
