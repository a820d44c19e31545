// Command linkedin-monitor polls the LinkedIn API for new comments and
// likes on the caller's recent posts and reports the ones not seen in
// any previous run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"engagewatch/internal/config"
	"engagewatch/internal/monitor"
	"engagewatch/internal/source/linkedin"
	"engagewatch/internal/store"
)

func main() {
	var (
		days      int
		statePath string
		envFile   string
		schedule  string
	)
	flag.IntVar(&days, "days", 0,
		"lookback window in days (overrides LOOKBACK_DAYS)")
	flag.StringVar(&statePath, "state", "",
		"path to the seen-notifications database (overrides STATE_PATH)")
	flag.StringVar(&envFile, "env", "", "path to a .env file to load")
	flag.StringVar(&schedule, "schedule", "",
		"cron expression; keep running on this schedule instead of once")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if err := cfg.ValidateLinkedIn(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if statePath == "" {
		statePath = cfg.StatePath
	}
	st, err := store.Open(statePath)
	if err != nil {
		log.Error().Err(err).Str("path", statePath).Msg("opening state store")
		os.Exit(1)
	}
	defer st.Close()

	adapter := linkedin.NewAdapter(
		linkedin.DefaultBaseURL, cfg.LinkedIn.AccessToken, log,
	)

	if days <= 0 {
		days = cfg.LookbackDays
	}
	runner := &monitor.Runner{
		Source:     adapter,
		Store:      st,
		Out:        os.Stdout,
		Log:        log,
		WindowDays: days,
	}

	if schedule != "" {
		err = monitor.RunOnSchedule(ctx, schedule, runner)
	} else {
		err = runner.Run(ctx)
	}
	if err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(lvl).With().Timestamp().Logger()
}
