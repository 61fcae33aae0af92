package models

import (
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds all runtime configuration. Every value comes from the
// environment so the tracker can run unattended for years without code
// edits; defaults match the deployed instance.
type Config struct {
	BaseURL             string
	MaxPages            int
	UserAgent           string
	Workers             int
	FetchTimeoutSeconds int
	ScrapeIntervalHours int
	StaleAfterHours     int
	AlertToken          string
	WebhookURL          string
	DatabaseURL         string
	SQLitePath          string
	Port                int
}

// LoadConfig reads configuration from the process environment.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:             "https://arg-heusenstamm.de/vertretungsplan/allgemein/35/w/",
		MaxPages:            99,
		UserAgent:           "VertretungsplanTrackerBot/1.0 (+https://example.local)",
		Workers:             4,
		FetchTimeoutSeconds: 15,
		ScrapeIntervalHours: 6,
		StaleAfterHours:     24,
		SQLitePath:          "data-store/entries.sqlite",
		Port:                3001,
	}

	if v := k.String("PLAN_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := k.Int("PLAN_MAX_PAGES"); v > 0 {
		cfg.MaxPages = v
	}
	if v := k.String("PLAN_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := k.Int("PLAN_WORKERS"); v > 0 {
		cfg.Workers = v
	}
	if v := k.Int("PLAN_FETCH_TIMEOUT_SECONDS"); v > 0 {
		cfg.FetchTimeoutSeconds = v
	}
	if v := k.Int("SCRAPE_INTERVAL_HOURS"); v > 0 {
		cfg.ScrapeIntervalHours = v
	}
	if v := k.Int("PLAN_STALE_AFTER_HOURS"); v > 0 {
		cfg.StaleAfterHours = v
	}
	cfg.AlertToken = k.String("ALERT_TOKEN")
	cfg.WebhookURL = k.String("DISCORD_WEBHOOK_URL")
	cfg.DatabaseURL = k.String("DATABASE_URL")
	if v := k.String("PLAN_SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := k.Int("PORT"); v > 0 {
		cfg.Port = v
	}

	return cfg, nil
}
