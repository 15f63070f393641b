// Package ingest refreshes the element store from an external TLE source on
// startup and on a fixed period.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/star/satview/internal/elements"
	"github.com/star/satview/internal/metrics"
	"github.com/star/satview/internal/propagation"
	"github.com/star/satview/internal/tle"
)

// DefaultRefreshPeriod is how often the element set is re-fetched.
const DefaultRefreshPeriod = 6 * time.Hour

// DefaultRefreshTimeout bounds one shared refresh cycle.
const DefaultRefreshTimeout = 2 * time.Minute

// ErrNoElements is returned when a fetched body contains no usable element
// set. The previous active set is kept rather than replaced with nothing.
var ErrNoElements = errors.New("no usable element sets in response")

// Source supplies raw three-line element text.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FetchError reports a failed retrieval from the Source. The refresh is
// abandoned and the previous active set stays current.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return "element fetch failed: " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Config controls the scheduler.
type Config struct {
	SourceName     string        // recorded on each ActiveSet (usually the URL)
	RefreshPeriod  time.Duration // default DefaultRefreshPeriod
	RefreshTimeout time.Duration // default DefaultRefreshTimeout
}

// Scheduler fetches, parses and publishes active sets.
type Scheduler struct {
	source Source
	store  *elements.Store
	pool   *propagation.WorkerPool
	config Config
	logger *slog.Logger

	inflight singleflight.Group
}

// NewScheduler creates a Scheduler that publishes into store.
func NewScheduler(source Source, store *elements.Store, pool *propagation.WorkerPool, config Config, logger *slog.Logger) *Scheduler {
	if config.RefreshPeriod <= 0 {
		config.RefreshPeriod = DefaultRefreshPeriod
	}
	if config.RefreshTimeout <= 0 {
		config.RefreshTimeout = DefaultRefreshTimeout
	}
	return &Scheduler{
		source: source,
		store:  store,
		pool:   pool,
		config: config,
		logger: logger,
	}
}

// Refresh runs one ingestion cycle and returns the number of objects in the
// newly published set. Concurrent callers share a single in-flight cycle.
// The cycle runs detached from every caller's cancellation, bounded by
// RefreshTimeout; a caller whose ctx ends stops waiting with ctx.Err() while
// the cycle completes for the others. On error the store is left untouched.
func (s *Scheduler) Refresh(ctx context.Context) (int, error) {
	ch := s.inflight.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.RefreshTimeout)
		defer cancel()
		return s.refresh(rctx)
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("joined in-flight refresh", "component", "ingest")
		}
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int), nil
	}
}

func (s *Scheduler) refresh(ctx context.Context) (count int, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordRefresh(time.Since(start), err)
	}()

	data, err := s.source.Fetch(ctx)
	if err != nil {
		return 0, &FetchError{Err: err}
	}
	fetchedAt := time.Now()

	entries, err := tle.Parse(bytes.NewReader(data), s.logger)
	if err != nil {
		return 0, fmt.Errorf("parsing element text: %w", err)
	}

	results, err := s.pool.ParseBatch(ctx, entries)
	if err != nil {
		return 0, fmt.Errorf("building propagation models: %w", err)
	}

	capacity := s.store.Capacity()
	objects := make([]elements.TrackedObject, 0, min(len(results), capacity))
	var rejected, truncated int
	for _, r := range results {
		if r.Err != nil {
			rejected++
			continue
		}
		// First-N policy: later objects lose, no ranking.
		if len(objects) == capacity {
			truncated++
			continue
		}
		objects = append(objects, elements.TrackedObject{
			Name:    r.Entry.Name,
			NORADID: r.Entry.NORADID,
			Epoch:   r.Entry.Epoch,
			Model:   r.Model,
		})
	}
	metrics.AddDroppedObjects("parse", rejected)
	metrics.AddDroppedObjects("capacity", truncated)

	if len(objects) == 0 {
		return 0, fmt.Errorf("%w (%d groups, %d rejected)", ErrNoElements, len(entries), rejected)
	}
	if truncated > 0 {
		s.logger.Info("active set truncated to capacity",
			"component", "ingest",
			"capacity", capacity,
			"dropped", truncated,
		)
	}

	set := &elements.ActiveSet{
		Source:     s.config.SourceName,
		FetchedAt:  fetchedAt,
		EpochRange: elements.ComputeEpochRange(objects),
		Objects:    objects,
	}
	s.store.Swap(set)
	metrics.SetActiveSet(len(objects), set.Generation)
	metrics.SetDatasetAge(0)

	s.logger.Info("active set replaced",
		"component", "ingest",
		"generation", set.Generation,
		"count", len(objects),
		"rejected", rejected,
		"truncated", truncated,
		"fetched_at", fetchedAt.UTC().Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return len(objects), nil
}

// Run refreshes once immediately and then every RefreshPeriod until ctx is
// cancelled. Failures are logged; the next tick is the retry.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("ingest scheduler started",
		"component", "ingest",
		"source", s.config.SourceName,
		"refresh_period", s.config.RefreshPeriod.String(),
	)
	s.refreshAndLog(ctx)

	ticker := time.NewTicker(s.config.RefreshPeriod)
	defer ticker.Stop()

	age := time.NewTicker(10 * time.Second)
	defer age.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ingest scheduler stopped", "component", "ingest")
			return
		case <-ticker.C:
			s.refreshAndLog(ctx)
		case <-age.C:
			if a := s.store.AgeSeconds(); a >= 0 {
				metrics.SetDatasetAge(a)
			}
		}
	}
}

func (s *Scheduler) refreshAndLog(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		var fe *FetchError
		s.logger.Warn("element refresh failed, keeping previous set",
			"component", "ingest",
			"fetch_error", errors.As(err, &fe),
			"error", err,
		)
	}
}
