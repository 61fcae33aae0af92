// Package serve exposes the stored data over a small read-only HTTP API,
// plus a token-guarded manual scrape trigger.
package serve

import (
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mkoenig/vplan-tracker/internal/scrape"
	"github.com/mkoenig/vplan-tracker/models"
	"github.com/mkoenig/vplan-tracker/pkg/alert"
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

	srv := NewServer(cfg, st, alert.NewNotifier(cfg.WebhookURL, logger), logger)
	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, srv.Router())
}
