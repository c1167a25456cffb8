// Package pipeline drives raw records through enrichment into the catalog.
package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shanehull/petcatalog/internal/enrich"
	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/source"
	"github.com/shanehull/petcatalog/internal/upsert"
)

// Applier writes one candidate field set. *upsert.Orchestrator is one.
type Applier interface {
	Apply(ctx context.Context, entity model.Entity, key string, candidates model.FieldSet) (upsert.Outcome, error)
}

var _ Applier = (*upsert.Orchestrator)(nil)

// Runner processes records of type R with a bounded pool of workers. One
// Runner is one run: every record it writes carries the same run ID.
type Runner[R any] struct {
	enricher enrich.Enricher[R]
	applier  Applier
	workers  int
	runID    string
	logger   *slog.Logger

	mu   sync.Mutex
	keys map[string]*keyLock
}

// keyLock is held while one record key is written. refs counts the workers
// holding or waiting for it so the entry can go once nobody needs it.
type keyLock struct {
	sync.Mutex
	refs int
}

type Option func(*options)

type options struct {
	workers int
	runID   string
}

// WithWorkers sets the pool size. 1 processes records sequentially.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRunID replaces the generated run ID.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

func NewRunner[R any](enricher enrich.Enricher[R], applier Applier, logger *slog.Logger, opts ...Option) *Runner[R] {
	o := options{workers: 10}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner[R]{
		enricher: enricher,
		applier:  applier,
		workers:  o.workers,
		runID:    o.runID,
		logger:   logger.With("run_id", o.runID),
		keys:     make(map[string]*keyLock),
	}
}

func (r *Runner[R]) RunID() string { return r.runID }

// Process enriches and applies records. Once ctx is done no further record
// is started; records already started are finished and written whole.
// Records never started are counted as failed with reason canceled.
func (r *Runner[R]) Process(ctx context.Context, records []R) Stats {
	return r.process(ctx, records, r.logger)
}

func (r *Runner[R]) process(ctx context.Context, records []R, logger *slog.Logger) Stats {
	stats := &lockedStats{s: Stats{Found: len(records)}}
	semaphore := make(chan struct{}, r.workers)
	var wg sync.WaitGroup

	for i, rec := range records {
		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case semaphore <- struct{}{}:
				wg.Add(1)
				go func(rec R) {
					defer wg.Done()
					defer func() { <-semaphore }()
					stats.merge(r.one(ctx, rec, logger))
				}(rec)
				continue
			}
		}
		left := len(records) - i
		logger.Warn("Run canceled", "unprocessed", left, "err", ctx.Err())
		stats.merge(Stats{Failed: left, Failures: map[string]int{ReasonCanceled: left}})
		break
	}

	wg.Wait()
	return stats.snapshot()
}

func (r *Runner[R]) one(ctx context.Context, rec R, logger *slog.Logger) Stats {
	res, err := r.enricher.Enrich(rec, r.runID)
	if err != nil {
		reason, skipped := reasonFor(err)
		logger.Debug("Skipped record", "reason", reason, "err", err)
		if skipped {
			return Stats{Skipped: 1, Failures: map[string]int{reason: 1}}
		}
		return Stats{Failed: 1, Failures: map[string]int{reason: 1}}
	}

	unlock := r.lock(res.Key)
	defer unlock()
	// A started record is written whole even if the run is canceled meanwhile.
	outcome, err := r.applier.Apply(context.WithoutCancel(ctx), res.Entity, res.Key, res.Fields)
	if err != nil {
		logger.Error("Save failed", "key", res.Key, "err", err)
		return Stats{Failed: 1, Failures: map[string]int{ReasonStorageFailed: 1}}
	}
	switch outcome {
	case upsert.Inserted:
		logger.Info("Saved new", "key", res.Key)
		return Stats{Inserted: 1}
	case upsert.Updated:
		return Stats{Updated: 1}
	default:
		return Stats{Unchanged: 1}
	}
}

// lock serializes writes to one record key across workers.
func (r *Runner[R]) lock(key string) func() {
	r.mu.Lock()
	kl, ok := r.keys[key]
	if !ok {
		kl = &keyLock{}
		r.keys[key] = kl
	}
	kl.refs++
	r.mu.Unlock()

	kl.Lock()
	return func() {
		kl.Unlock()
		r.mu.Lock()
		defer r.mu.Unlock()
		if kl.refs--; kl.refs == 0 {
			delete(r.keys, key)
		}
	}
}

// Run fetches every source concurrently and processes each source's records
// as they arrive. A source that fails to fetch counts once as fetch_failed;
// whatever it returned before failing is still processed.
func (r *Runner[R]) Run(ctx context.Context, sources []source.Sourcer[R]) Stats {
	type fetchResult struct {
		source  source.Sourcer[R]
		records []R
		err     error
	}
	resultsChan := make(chan fetchResult, len(sources))

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src source.Sourcer[R]) {
			defer wg.Done()
			records, err := src.Fetch(ctx)
			resultsChan <- fetchResult{source: src, records: records, err: err}
		}(src)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var total Stats
	for result := range resultsChan {
		srcLogger := r.logger.With("source", result.source.Name())
		if result.err != nil {
			srcLogger.Error("Fetch failed", "records", len(result.records), "err", result.err)
			total.Merge(Stats{Failed: 1, Failures: map[string]int{ReasonFetchFailed: 1}})
			if len(result.records) == 0 {
				continue
			}
		} else {
			srcLogger.Info("Fetched", "records", len(result.records))
		}
		total.Merge(r.process(ctx, result.records, srcLogger))
	}

	total.Log(r.logger)
	return total
}
