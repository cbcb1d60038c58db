package watch

import "context"

// Fetcher is the request surface the crawl depends on. *fetch.Client
// is the production implementation; tests substitute stubs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
