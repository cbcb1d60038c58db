package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkazmer/approval-watch/app/store"
)

// Stats summarizes a run for logging and archiving.
type Stats struct {
	Candidates int
	Malformed  int
	Filtered   int
	Known      int
	Accepted   int
	Skipped    int
	Duplicates int
	Elapsed    time.Duration
}

// Result is what a completed run produced.
type Result struct {
	Outcome Outcome
	Records []Record
	Stats   Stats
}

// Engine drives one crawl-and-diff run: fetch and parse the listing,
// scrape and fingerprint every candidate, compare against the master
// store, accept what is new and classify the outcome.
//
// The run moves through Start (store loaded), ListingFetched
// (candidates in hand) and Classified (outcome known). Individual
// candidate failures reduce the accepted set but never abort the run;
// only a listing fetch failure is fatal.
type Engine struct {
	config   *Config
	fetcher  Fetcher
	store    store.Store
	scraper  *Scraper
	listing  *ListingParser
	feed     *FeedParser
	filterer *Filterer
	batch    *BatchRunner
}

func NewEngine(sourceConfig *Config, fetcher Fetcher, st store.Store) *Engine {
	return &Engine{
		config:   sourceConfig,
		fetcher:  fetcher,
		store:    st,
		scraper:  NewScraper(fetcher, sourceConfig),
		listing:  NewListingParser(),
		feed:     NewFeedParser(),
		filterer: NewFilterer(),
		batch:    NewBatchRunner(sourceConfig.Limits.BatchSize, sourceConfig.BatchPause()),
	}
}

func (e *Engine) Run(ctx context.Context) (*Result, error) {
	started := time.Now()

	knownCount, err := e.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load master store: %w", err)
	}
	initial := knownCount == 0
	slog.Info("Master store loaded", "source", e.config.Name, "known", knownCount, "bootstrap", initial)

	candidates, malformed, err := e.fetchListing(ctx)
	if err != nil {
		// Nothing to diff against
		return nil, err
	}

	filtered := 0
	candidates, filtered = e.filterer.Run(candidates, e.config)
	slog.Info("Listing parsed", "source", e.config.Name, "candidates", len(candidates), "malformed", malformed, "filtered", filtered)

	stats := Stats{
		Candidates: len(candidates),
		Malformed:  malformed,
		Filtered:   filtered,
	}

	// Every candidate is scraped and fingerprinted each run: the
	// fingerprint is content-derived, so membership cannot be decided
	// from the listing row alone.
	var records []Record
	acceptedSet := make(map[string]struct{})

	err = e.batch.Run(ctx, candidates, func(ctx context.Context, candidate Candidate) error {
		doc, err := e.scraper.Scrape(ctx, candidate)
		if err != nil {
			stats.Skipped++
			slog.Warn("Skipping candidate", "source", e.config.Name, "name", candidate.Name, "error", err)
			return err
		}

		fingerprint := Fingerprint(doc)
		if _, ok := acceptedSet[fingerprint]; ok {
			stats.Duplicates++
			slog.Debug("Duplicate content within listing", "source", e.config.Name, "name", candidate.Name, "fingerprint", fingerprint)
			return nil
		}
		if e.store.Contains(fingerprint) {
			stats.Known++
			return nil
		}

		records = append(records, Record{Document: doc, Fingerprint: fingerprint})
		acceptedSet[fingerprint] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := classify(initial, len(records))

	if outcome != OutcomeSynchronized {
		for _, record := range records {
			entry := store.Entry{
				Fingerprint:  record.Fingerprint,
				Name:         record.Name,
				ApprovalDate: record.ApprovalDate,
				DetailURL:    record.DetailURL,
				FirstSeenAt:  time.Now(),
			}
			if err := e.store.Append(entry); err != nil {
				return nil, fmt.Errorf("failed to append record %s: %w", record.Fingerprint, err)
			}
		}
	}

	stats.Accepted = len(records)
	stats.Elapsed = time.Since(started)

	slog.Info("Run classified",
		"source", e.config.Name,
		"outcome", outcome,
		"accepted", stats.Accepted,
		"known", stats.Known,
		"skipped", stats.Skipped,
		"elapsed", stats.Elapsed)

	return &Result{Outcome: outcome, Records: records, Stats: stats}, nil
}

func (e *Engine) fetchListing(ctx context.Context) ([]Candidate, int, error) {
	fetchCtx := ctx
	if t := e.config.Settings.Timeout; t > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, time.Duration(t)*time.Second)
		defer cancel()
	}

	body, err := e.fetcher.Fetch(fetchCtx, e.config.URL)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch listing %s: %w", e.config.URL, err)
	}

	if e.config.Kind == KindFeed {
		return e.feed.Run(body, e.config.URL)
	}
	return e.listing.Run(body, e.config.URL)
}

// classify maps run state to its outcome. A store that was empty at
// the start means this run is the initial load regardless of how many
// candidates survived scraping.
func classify(initial bool, newCount int) Outcome {
	switch {
	case initial:
		return OutcomeInitialLoad
	case newCount > 0:
		return OutcomeDeltaUpdate
	default:
		return OutcomeSynchronized
	}
}
