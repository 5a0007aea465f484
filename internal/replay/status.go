package replay

import (
	"context"
	"sync"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
)

// StatusTracker keeps the status of the latest run and the enumeration progress
type StatusTracker struct {
	mu       sync.RWMutex
	status   models.RunStatus
	progress models.FetchProgress
}

// NewStatusTracker creates an idle tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{status: models.RunStatus{State: models.RunStateIdle}}
}

// Status returns a copy of the latest run status
func (t *StatusTracker) Status() models.RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status := t.status
	if t.status.Replayed != nil {
		status.Replayed = make(map[models.Category]int, len(t.status.Replayed))
		for c, n := range t.status.Replayed {
			status.Replayed[c] = n
		}
	}
	return status
}

// Progress returns the latest enumeration progress
func (t *StatusTracker) Progress() models.FetchProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress
}

// Update stores status as the latest
func (t *StatusTracker) Update(status models.RunStatus) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()
}

// SetProgress stores the latest enumeration progress
func (t *StatusTracker) SetProgress(p models.FetchProgress) {
	t.mu.Lock()
	t.progress = p
	t.mu.Unlock()
}

// WatchProgress copies snapshots from updates until ctx is done
func (t *StatusTracker) WatchProgress(ctx context.Context, updates <-chan models.FetchProgress) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-updates:
			t.SetProgress(p)
		}
	}
}
