package batch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/config"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
)

// Processor fans read-only work out to a bounded number of goroutines
type Processor struct {
	workers    int
	logger     *logrus.Logger
	statusChan chan models.FetchProgress
	mu         sync.Mutex
}

// NewProcessor creates a new batch processor
func NewProcessor(cfg *config.BatchConfig, logger *logrus.Logger) *Processor {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		workers:    workers,
		logger:     logger,
		statusChan: make(chan models.FetchProgress, 1),
	}
}

// Workers returns the concurrency limit
func (p *Processor) Workers() int {
	return p.workers
}

// GetProgress returns the channel carrying the latest progress snapshot
func (p *Processor) GetProgress() <-chan models.FetchProgress {
	return p.statusChan
}

// Map applies fn to every item with at most p.Workers() calls in flight and
// returns the results in input order. The first error cancels the remaining
// calls and is returned.
func Map[T, R any](ctx context.Context, p *Processor, items []T, label func(T) string, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	progress := models.FetchProgress{
		Total:     len(items),
		StartTime: time.Now(),
		UpdatedAt: time.Now(),
	}
	p.updateProgress(progress)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var mu sync.Mutex
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r

			mu.Lock()
			progress.Completed++
			progress.LastItem = label(item)
			progress.UpdatedAt = time.Now()
			snapshot := progress
			mu.Unlock()

			p.updateProgress(snapshot)
			p.logger.WithFields(logrus.Fields{
				"item":      snapshot.LastItem,
				"completed": snapshot.Completed,
				"total":     snapshot.Total,
			}).Debug("Fetched")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// updateProgress replaces the buffered snapshot with progress
func (p *Processor) updateProgress(progress models.FetchProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A reader may take the stale snapshot between the two selects, so neither blocks.
	select {
	case <-p.statusChan:
	default:
	}
	select {
	case p.statusChan <- progress:
	default:
	}
}
