// Package config resolves the monitor's configuration from the
// environment, with optional .env file support.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"engagewatch/internal/credential"
)

// EmailConfig holds the IMAP mailbox connection settings.
type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
}

// LinkedInConfig holds the LinkedIn API credentials.
type LinkedInConfig struct {
	AccessToken  string
	ClientID     string
	ClientSecret string
}

// Config is the full environment-sourced configuration.
type Config struct {
	Email    EmailConfig
	LinkedIn LinkedInConfig

	// NotifySender is the From address notification emails come from.
	NotifySender string

	// LookbackDays is the default lookback window in days.
	LookbackDays int

	// StatePath is where the seen-notifications database lives.
	StatePath string

	LogLevel string
}

// DefaultStatePath returns the default location of the state database,
// ~/.config/engagewatch/state.db.
func DefaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "engagewatch.db")
	}
	return filepath.Join(home, ".config", "engagewatch", "state.db")
}

// Load reads configuration from the environment. When envFile is
// non-empty (or a ./.env exists) it is loaded first, without
// overriding variables already set in the process environment.
//
// When EMAIL_PASSWORD is unset, the OS keyring is consulted as a
// fallback before giving up.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, err
		}
	} else {
		// Best-effort; a missing .env just means plain env vars.
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("EMAIL_HOST", "imap.gmail.com")
	v.SetDefault("EMAIL_PORT", "993")
	v.SetDefault("EMAIL_TLS", true)
	v.SetDefault("NOTIFY_SENDER", "noreply@linkedin.com")
	v.SetDefault("LOOKBACK_DAYS", 7)
	v.SetDefault("STATE_PATH", DefaultStatePath())
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Email: EmailConfig{
			Host:     v.GetString("EMAIL_HOST"),
			Port:     v.GetString("EMAIL_PORT"),
			Username: v.GetString("EMAIL_USERNAME"),
			Password: v.GetString("EMAIL_PASSWORD"),
			TLS:      v.GetBool("EMAIL_TLS"),
		},
		LinkedIn: LinkedInConfig{
			AccessToken:  v.GetString("LINKEDIN_ACCESS_TOKEN"),
			ClientID:     v.GetString("LINKEDIN_CLIENT_ID"),
			ClientSecret: v.GetString("LINKEDIN_CLIENT_SECRET"),
		},
		NotifySender: v.GetString("NOTIFY_SENDER"),
		LookbackDays: v.GetInt("LOOKBACK_DAYS"),
		StatePath:    v.GetString("STATE_PATH"),
		LogLevel:     v.GetString("LOG_LEVEL"),
	}

	if cfg.Email.Password == "" {
		if pw, err := credential.Get(credential.KeyEmailPassword); err == nil {
			cfg.Email.Password = pw
		}
	}

	return cfg, nil
}

// ValidateEmail checks that the email adapter has what it needs.
func (c *Config) ValidateEmail() error {
	if c.Email.Username == "" || c.Email.Password == "" {
		return errors.New(
			"email credentials not configured: set EMAIL_USERNAME and " +
				"EMAIL_PASSWORD (for Gmail, use an app password), " +
				"either in the environment or a .env file",
		)
	}
	return nil
}

// ValidateLinkedIn checks that the API adapter has what it needs.
func (c *Config) ValidateLinkedIn() error {
	if c.LinkedIn.AccessToken == "" {
		return errors.New(
			"LinkedIn credentials not configured: set " +
				"LINKEDIN_ACCESS_TOKEN (and optionally " +
				"LINKEDIN_CLIENT_ID / LINKEDIN_CLIENT_SECRET) in the " +
				"environment or a .env file",
		)
	}
	return nil
}
