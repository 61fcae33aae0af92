// Package scraper drives one ingestion run over the configured page range.
// Pages are fetched by a small worker pool; each page is independent, and a
// failed page is skipped rather than aborting the run.
package scraper

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mkoenig/vplan-tracker/models"
	"github.com/mkoenig/vplan-tracker/pkg/fetcher"
	"github.com/mkoenig/vplan-tracker/pkg/planparser"
)

// PageRange selects the page indices to attempt. Zero values fall back to
// 1..maxPages.
type PageRange struct {
	From int
	To   int
}

type job struct {
	index int
}

type result struct {
	index   int
	entries []models.PlanEntry
}

type Scraper struct {
	fetcher *fetcher.Fetcher
	logger  *slog.Logger
	workers int
}

func New(f *fetcher.Fetcher, logger *slog.Logger, workers int) *Scraper {
	if workers <= 0 {
		workers = 4
	}
	return &Scraper{fetcher: f, logger: logger, workers: workers}
}

// FetchAll fetches and parses every page in the range and aggregates the
// resulting entries. PagesFetched reports the count of attempted indices,
// not the count that succeeded.
func (s *Scraper) FetchAll(r PageRange, maxPages int) models.FetchResult {
	from := r.From
	if from <= 0 {
		from = 1
	}
	to := r.To
	if to <= 0 {
		to = maxPages
	}
	// An inverted range has nothing to attempt; callers pass ranges
	// straight from the CLI and the HTTP trigger.
	if to < from {
		return models.FetchResult{Entries: nil, PagesFetched: 0}
	}

	now := time.Now()
	jobs := make(chan job, to-from+1)
	results := make(chan result, to-from+1)

	var wg sync.WaitGroup
	for w := 1; w <= s.workers; w++ {
		wg.Add(1)
		go s.worker(w, now, &wg, jobs, results)
	}

	for i := from; i <= to; i++ {
		jobs <- job{index: i}
	}
	close(jobs)

	wg.Wait()
	close(results)

	var entries []models.PlanEntry
	for res := range results {
		entries = append(entries, res.entries...)
	}

	return models.FetchResult{
		Entries:      entries,
		PagesFetched: to - from + 1,
	}
}

// worker fetches pages from the jobs channel until it is drained. Fetch and
// parse failures only drop the affected page.
func (s *Scraper) worker(id int, now time.Time, wg *sync.WaitGroup, jobs <-chan job, results chan<- result) {
	defer wg.Done()
	for j := range jobs {
		page := fetcher.PageName(j.index)
		doc, err := s.fetcher.GetPage(j.index)
		if err != nil {
			s.logger.Debug("page skipped", "worker", id, "page", page, "error", err)
			continue
		}
		entries := planparser.ParsePage(doc, page, now)
		if len(entries) > 0 {
			s.logger.Info("page parsed", "worker", id, "page", page, "entries", len(entries))
		}
		results <- result{index: j.index, entries: entries}
	}
}
