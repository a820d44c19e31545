// Package monitor wires one run of the pipeline together:
// fetch -> dedup -> report -> persist.
package monitor

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"engagewatch/internal/report"
	"engagewatch/internal/source"
	"engagewatch/internal/store"
)

// DefaultWindowDays is the default lookback window.
const DefaultWindowDays = 7

// Runner executes single monitor runs against one source adapter.
type Runner struct {
	Source     source.Source
	Store      store.Store
	Out        io.Writer
	Log        zerolog.Logger
	WindowDays int
}

// Run performs one batch: fetch candidates for the lookback window,
// filter against the seen set, report the survivors, then persist the
// updated seen set and the run's high-water record.
//
// A returned error means the run failed fatally (connection, auth); a
// partial batch still reports what was obtained and returns nil. Either
// way exactly one report is written to Out.
func (r *Runner) Run(ctx context.Context) error {
	started := time.Now()

	days := r.WindowDays
	if days <= 0 {
		days = DefaultWindowDays
	}

	if last, err := r.Store.LastRun(ctx); err == nil && last != nil {
		r.Log.Debug().
			Time("started_at", last.StartedAt).
			Int("fresh", last.Fresh).
			Msg("previous run")
	}

	result, err := r.Source.FetchNotifications(ctx, days)
	if err != nil {
		report.RenderFatal(r.Out, r.Source.Type(), err)
		return err
	}

	seen, err := r.Store.LoadSeen(ctx)
	if err != nil {
		// A fresh start is always valid; dedup just starts over.
		r.Log.Warn().Err(err).Msg("could not load seen set, assuming empty")
		seen = map[string]bool{}
	}

	fresh := store.FilterNew(result.Notifications, seen)
	report.Render(r.Out, r.Source.Type(), fresh, result)

	if err := r.Store.MarkSeen(ctx, fresh); err != nil {
		// The report already went out; the worst case is re-reporting
		// these events next run.
		r.Log.Error().Err(err).Msg("persisting seen set failed")
	}

	summary := store.RunSummary{
		Source:      r.Source.Type(),
		StartedAt:   started,
		Total:       len(result.Notifications),
		Fresh:       len(fresh),
		Skipped:     result.Skipped,
		RateLimited: result.RateLimited,
	}
	if err := r.Store.RecordRun(ctx, summary); err != nil {
		r.Log.Error().Err(err).Msg("recording run failed")
	}

	r.Log.Info().
		Int("candidates", summary.Total).
		Int("new", summary.Fresh).
		Int("skipped", summary.Skipped).
		Bool("rate_limited", summary.RateLimited).
		Dur("took", time.Since(started)).
		Msg("run complete")

	return nil
}
