package pipeline

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/shanehull/petcatalog/internal/model"
)

// Failure reasons counted in Stats.Failures.
const (
	ReasonMissingBrand  = "missing_brand"
	ReasonMissingName   = "missing_name"
	ReasonMissingBreed  = "missing_breed"
	ReasonFetchFailed   = "fetch_failed"
	ReasonEnrichFailed  = "enrich_failed"
	ReasonStorageFailed = "storage_failed"
	ReasonCanceled      = "canceled"
)

// Stats counts what a run did with the records it was handed.
type Stats struct {
	Found     int
	Inserted  int
	Updated   int
	Unchanged int
	Skipped   int
	Failed    int
	Failures  map[string]int
}

// Merge adds o into s.
func (s *Stats) Merge(o Stats) {
	s.Found += o.Found
	s.Inserted += o.Inserted
	s.Updated += o.Updated
	s.Unchanged += o.Unchanged
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	for reason, n := range o.Failures {
		s.fail(reason, n)
	}
}

func (s *Stats) fail(reason string, n int) {
	if s.Failures == nil {
		s.Failures = make(map[string]int)
	}
	s.Failures[reason] += n
}

// Log writes the run summary line.
func (s Stats) Log(logger *slog.Logger) {
	logger.Info("Pipeline Complete",
		"total_found", s.Found,
		"new", s.Inserted,
		"updated", s.Updated,
		"unchanged", s.Unchanged,
		"skipped", s.Skipped,
		"errors", s.Failed,
		"failures", s.Failures)
}

// lockedStats guards a Stats shared by workers.
type lockedStats struct {
	mu sync.Mutex
	s  Stats
}

func (l *lockedStats) merge(o Stats) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.s.Merge(o)
}

func (l *lockedStats) snapshot() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s
}

// reasonFor names the failure behind err. Records without an identity are
// skipped rather than failed.
func reasonFor(err error) (reason string, skipped bool) {
	switch {
	case errors.Is(err, model.ErrMissingBrand):
		return ReasonMissingBrand, true
	case errors.Is(err, model.ErrMissingName):
		return ReasonMissingName, true
	case errors.Is(err, model.ErrMissingBreed):
		return ReasonMissingBreed, true
	default:
		return ReasonEnrichFailed, false
	}
}
