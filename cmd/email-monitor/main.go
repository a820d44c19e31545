// Command email-monitor checks a mailbox for engagement notification
// emails and reports the ones not seen in any previous run.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"engagewatch/internal/config"
	"engagewatch/internal/credential"
	"engagewatch/internal/monitor"
	"engagewatch/internal/source/email"
	"engagewatch/internal/store"
)

func main() {
	var (
		days          int
		statePath     string
		envFile       string
		schedule      string
		storePassword bool
	)
	flag.IntVar(&days, "days", 0,
		"lookback window in days (overrides LOOKBACK_DAYS)")
	flag.StringVar(&statePath, "state", "",
		"path to the seen-notifications database (overrides STATE_PATH)")
	flag.StringVar(&envFile, "env", "", "path to a .env file to load")
	flag.StringVar(&schedule, "schedule", "",
		"cron expression; keep running on this schedule instead of once")
	flag.BoolVar(&storePassword, "store-password", false,
		"read the mailbox password from stdin, save it to the OS keyring, and exit")
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

	if storePassword {
		if err := savePassword(); err != nil {
			log.Error().Err(err).Msg("storing password failed")
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "password stored in keyring")
		return
	}

	if err := cfg.ValidateEmail(); err != nil {
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

	adapter := email.NewAdapter(
		cfg.Email.Host, cfg.Email.Port,
		cfg.Email.Username, cfg.Email.Password,
		cfg.Email.TLS,
		cfg.NotifySender,
		log,
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

func savePassword() error {
	fmt.Fprint(os.Stderr, "mailbox password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return err
	}
	return credential.Set(
		credential.KeyEmailPassword, strings.TrimSpace(line),
	)
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
