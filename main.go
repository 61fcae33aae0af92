package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mkoenig/vplan-tracker/internal/maintenance"
	"github.com/mkoenig/vplan-tracker/internal/scrape"
	"github.com/mkoenig/vplan-tracker/internal/serve"
)

func main() {
	app := &cli.App{
		Name:  "vplan-tracker",
		Usage: "Scrapes the school substitution plan and serves the collected entries",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Only log errors",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "scrape",
				Usage:  "Run one ingestion over the configured page range",
				Action: scrape.Action,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "from",
						Usage: "First page index (default 1)",
					},
					&cli.IntFlag{
						Name:  "to",
						Usage: "Last page index (default PLAN_MAX_PAGES)",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serve.Action,
			},
			{
				Name:   "maintenance",
				Usage:  "Run a scrape only if the stored data is stale",
				Action: maintenance.Action,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
