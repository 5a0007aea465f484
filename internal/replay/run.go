package replay

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
)

// SyncRun is the context of one replay pass. It owns the in-memory ledger,
// which is mutated as items are replayed and persisted once at the end.
type SyncRun struct {
	ID           string
	Repositories []models.RepoRef
	State        *models.ProcessedState
	// CommitsMade flips on the first synthetic commit of the run
	CommitsMade bool
	Reconciled  int
	Replayed    map[models.Category]int
	Pushed      bool
	StartTime   time.Time
	FinishTime  time.Time
}

// NewSyncRun starts a run over state
func NewSyncRun(state *models.ProcessedState, start time.Time) *SyncRun {
	return &SyncRun{
		ID:        uuid.NewString(),
		State:     state,
		Replayed:  make(map[models.Category]int),
		StartTime: start,
	}
}

// recordReplay notes a successfully committed item
func (r *SyncRun) recordReplay(item models.ActivityItem) error {
	if err := r.State.Record(item); err != nil {
		return err
	}
	r.CommitsMade = true
	r.Replayed[item.Category]++
	return nil
}

// recordReconciled notes an item found in the destination history but missing
// from the ledger. It reports whether the ledger changed.
func (r *SyncRun) recordReconciled(item models.ActivityItem) (bool, error) {
	if r.State.Contains(item) {
		return false, nil
	}
	if err := r.State.Record(item); err != nil {
		return false, err
	}
	r.Reconciled++
	return true, nil
}

// needsPublish reports whether the run has anything to push and persist
func (r *SyncRun) needsPublish() bool {
	return r.CommitsMade || r.Reconciled > 0
}

// TotalReplayed is the number of synthetic commits made by the run
func (r *SyncRun) TotalReplayed() int {
	total := 0
	for _, n := range r.Replayed {
		total += n
	}
	return total
}

// Status summarises the run for reporting
func (r *SyncRun) Status(state string, err error) models.RunStatus {
	status := models.RunStatus{
		RunID:        r.ID,
		State:        state,
		StartTime:    r.StartTime,
		FinishTime:   r.FinishTime,
		Repositories: len(r.Repositories),
		Replayed:     make(map[models.Category]int, len(r.Replayed)),
		Reconciled:   r.Reconciled,
		Pushed:       r.Pushed,
	}
	for c, n := range r.Replayed {
		status.Replayed[c] = n
	}
	if err != nil {
		status.LastError = err.Error()
	}
	return status
}
