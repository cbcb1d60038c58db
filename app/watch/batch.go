package watch

import (
	"context"
	"log/slog"
	"time"
)

// BatchRunner paces candidates through fixed-size batches with a
// pause between batches, bounding burstiness independently of the
// per-request rate limiter.
type BatchRunner struct {
	size  int
	pause time.Duration
}

func NewBatchRunner(size int, pause time.Duration) *BatchRunner {
	if size <= 0 {
		size = 10
	}
	return &BatchRunner{size: size, pause: pause}
}

// Run feeds every candidate to fn in batch order. Errors from fn
// never stop the loop; a batch where every candidate failed is
// logged. The only way out early is context cancellation.
func (r *BatchRunner) Run(ctx context.Context, candidates []Candidate, fn func(context.Context, Candidate) error) error {
	total := (len(candidates) + r.size - 1) / r.size

	for start := 0; start < len(candidates); start += r.size {
		end := min(start+r.size, len(candidates))
		batch := candidates[start:end]
		number := start/r.size + 1

		slog.Debug("Processing batch", "batch", number, "total", total, "size", len(batch))

		failures := 0
		for _, candidate := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, candidate); err != nil {
				failures++
			}
		}

		if len(batch) > 0 && failures == len(batch) {
			slog.Warn("Entire batch failed", "batch", number, "size", len(batch))
		}

		// No pause after the last batch
		if end < len(candidates) && r.pause > 0 {
			slog.Debug("Pausing between batches", "pause", r.pause)
			timer := time.NewTimer(r.pause)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	return nil
}
