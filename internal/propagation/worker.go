package propagation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/star/satview/internal/tle"
)

// parseJob is a unit of work for the worker pool.
type parseJob struct {
	index int
	entry tle.TLEEntry
}

// ParseResult is the outcome of building one Model. Results are returned in
// input order; Err is non-nil when the entry was rejected.
type ParseResult struct {
	Entry tle.TLEEntry
	Model Model
	Err   error
}

// WorkerPool builds Models on a fixed number of goroutines. Parsing tens of
// thousands of element sets runs off the frame loop during ingestion.
type WorkerPool struct {
	workers int
	parse   Parser
	logger  *slog.Logger
}

// NewWorkerPool creates a pool that builds Models with parse.
func NewWorkerPool(workers int, parse Parser, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if parse == nil {
		parse = ParseSGP4
	}
	return &WorkerPool{
		workers: workers,
		parse:   parse,
		logger:  logger,
	}
}

// ParseBatch builds a Model for every entry. The returned slice has one result
// per entry, in the same order. If ctx is cancelled before every entry was
// handed to a worker, ParseBatch returns ctx.Err() and no results.
func (wp *WorkerPool) ParseBatch(ctx context.Context, entries []tle.TLEEntry) ([]ParseResult, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	results := make([]ParseResult, len(entries))
	jobs := make(chan parseJob, wp.workers*2)

	// Each worker writes only to its job's index, so results needs no lock.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				m, err := wp.parse(job.entry.Line1, job.entry.Line2)
				results[job.index] = ParseResult{Entry: job.entry, Model: m, Err: err}
			}
		}()
	}

	var cancelled error
feed:
	for i, entry := range entries {
		select {
		case jobs <- parseJob{index: i, entry: entry}:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			wp.logger.Warn("element set rejected",
				"component", "propagation",
				"name", r.Entry.Name,
				"norad_id", r.Entry.NORADID,
				"error", r.Err,
			)
		}
	}
	wp.logger.Debug("parse batch complete",
		"component", "propagation",
		"entries", len(entries),
		"failed", failed,
		"workers", wp.workers,
	)

	return results, nil
}
