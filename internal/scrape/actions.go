// Package scrape implements the ingestion command: fetch the page range,
// persist the parsed entries, record the attempt and report the outcome.
package scrape

import (
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mkoenig/vplan-tracker/models"
	"github.com/mkoenig/vplan-tracker/pkg/alert"
	"github.com/mkoenig/vplan-tracker/pkg/fetcher"
	"github.com/mkoenig/vplan-tracker/pkg/scraper"
	"github.com/mkoenig/vplan-tracker/pkg/store"
)

// Outcome summarises one completed ingestion run.
type Outcome struct {
	Parsed       int           `json:"parsed"`
	Inserted     int           `json:"inserted"`
	PagesFetched int           `json:"pagesFetched"`
	Duration     time.Duration `json:"-"`
}

func Action(c *cli.Context) error {
	logger := NewLogger(c.Bool("quiet"))

	cfg, err := models.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(2)
	}
	defer st.Close()

	notifier := alert.NewNotifier(cfg.WebhookURL, logger)
	r := scraper.PageRange{From: c.Int("from"), To: c.Int("to")}

	outcome, err := Run(logger, cfg, st, notifier, r)
	if err != nil {
		logger.Error("scrape failed", "error", err)
		return cli.Exit("scrape failed: "+err.Error(), 1)
	}
	logger.Info("scrape success",
		"parsed", outcome.Parsed,
		"inserted", outcome.Inserted,
		"pages_fetched", outcome.PagesFetched,
		"duration_ms", outcome.Duration.Milliseconds(),
	)
	return nil
}

// Run performs one ingestion run against the given store. On a persistence
// failure the attempt is recorded as failed before the error propagates;
// page-level fetch or parse problems never surface here. Notification is
// fire and forget either way.
func Run(logger *slog.Logger, cfg *models.Config, st store.Store, notifier *alert.Notifier, r scraper.PageRange) (Outcome, error) {
	started := time.Now()

	f := fetcher.NewFetcher(cfg.BaseURL, cfg.UserAgent, time.Duration(cfg.FetchTimeoutSeconds)*time.Second)
	result := scraper.New(f, logger, cfg.Workers).FetchAll(r, cfg.MaxPages)

	inserted, err := st.AppendEntries(result.Entries)
	if err != nil {
		if logErr := st.LogFetch(models.FetchLogEntry{
			Timestamp:    time.Now(),
			Success:      false,
			Error:        err.Error(),
			PagesFetched: 0,
		}); logErr != nil {
			logger.Error("failed to record failed fetch", "error", logErr)
		}
		notifier.Notify("Scrape failed", alert.Options{
			Severity:  "error",
			Component: "scraper",
			Err:       err,
		})
		return Outcome{}, err
	}

	if err := st.LogFetch(models.FetchLogEntry{
		Timestamp:    time.Now(),
		Success:      true,
		PagesFetched: result.PagesFetched,
	}); err != nil {
		logger.Error("failed to record fetch", "error", err)
	}

	outcome := Outcome{
		Parsed:       len(result.Entries),
		Inserted:     inserted,
		PagesFetched: result.PagesFetched,
		Duration:     time.Since(started),
	}

	if inserted == 0 {
		notifier.Notify("Scrape completed but no new entries.", alert.Options{
			Severity:  "warn",
			Component: "scraper",
			Extra:     map[string]any{"parsed": outcome.Parsed, "pagesFetched": outcome.PagesFetched},
		})
	} else {
		notifier.Notify("Scrape success.", alert.Options{
			Severity:  "info",
			Component: "scraper",
			Extra: map[string]any{
				"inserted":     inserted,
				"parsed":       outcome.Parsed,
				"pagesFetched": outcome.PagesFetched,
				"durationMs":   outcome.Duration.Milliseconds(),
			},
		})
	}
	return outcome, nil
}

// NewLogger builds the shared JSON logger; quiet raises the level to error.
func NewLogger(quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
