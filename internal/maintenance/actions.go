// Package maintenance runs a scrape only when the stored data is stale.
// Designed to sit behind a cron-style scheduler.
package maintenance

import (
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mkoenig/vplan-tracker/internal/scrape"
	"github.com/mkoenig/vplan-tracker/models"
	"github.com/mkoenig/vplan-tracker/pkg/alert"
	"github.com/mkoenig/vplan-tracker/pkg/scraper"
	"github.com/mkoenig/vplan-tracker/pkg/store"
)

func Action(c *cli.Context) error {
	logger := scrape.NewLogger(c.Bool("quiet"))

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

	last, err := st.LastSuccessfulFetch()
	if err != nil {
		logger.Error("failed to read fetch log", "error", err)
		os.Exit(2)
	}

	interval := time.Duration(cfg.ScrapeIntervalHours) * time.Hour
	if last != nil {
		age := time.Since(last.Timestamp)
		if age < interval {
			logger.Info("skipping scrape, data is fresh",
				"age_hours", age.Hours(), "interval_hours", cfg.ScrapeIntervalHours)
			return nil
		}
		logger.Info("triggering scrape", "age_hours", age.Hours())
	} else {
		logger.Info("triggering scrape, no successful fetch recorded")
	}
	notifier := alert.NewNotifier(cfg.WebhookURL, logger)
	if _, err := scrape.Run(logger, cfg, st, notifier, scraper.PageRange{}); err != nil {
		return cli.Exit("scrape failed: "+err.Error(), 1)
	}
	return nil
}
