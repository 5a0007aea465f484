package replay

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
)

// Runner performs one replay pass
type Runner interface {
	Run(ctx context.Context) (*SyncRun, error)
}

// Scheduler runs replay passes on an interval and on demand. Runs never overlap.
type Scheduler struct {
	runner   Runner
	tracker  *StatusTracker
	interval time.Duration
	logger   *logrus.Logger

	running sync.Mutex
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler; a non-positive interval disables periodic runs
func NewScheduler(runner Runner, tracker *StatusTracker, interval time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		tracker:  tracker,
		interval: interval,
		logger:   logger,
	}
}

// RunNow performs one run synchronously. It fails with a RUN_IN_PROGRESS error
// when another run is active.
func (s *Scheduler) RunNow(ctx context.Context) (*SyncRun, error) {
	if !s.running.TryLock() {
		return nil, apperrors.NewRunInProgressError()
	}
	defer s.running.Unlock()
	return s.run(ctx)
}

// Trigger starts a run in the background. It fails with a RUN_IN_PROGRESS error
// when another run is active.
func (s *Scheduler) Trigger(ctx context.Context) error {
	if !s.running.TryLock() {
		return apperrors.NewRunInProgressError()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		s.run(ctx)
	}()
	return nil
}

// Start runs immediately and then on every tick until ctx is done
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.Trigger(ctx); err != nil {
			s.logger.WithError(err).Warn("Initial run skipped")
		}
		if s.interval <= 0 {
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.logger.WithField("interval", s.interval.String()).Info("Starting sync ticker")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Trigger(ctx); err != nil {
					s.logger.WithError(err).Warn("Scheduled run skipped")
				}
			}
		}
	}()
}

// Wait blocks until the ticker loop and any active run have returned
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) (*SyncRun, error) {
	s.tracker.Update(models.RunStatus{State: models.RunStateRunning, StartTime: time.Now()})

	run, err := s.runner.Run(ctx)
	state := models.RunStateCompleted
	if err != nil {
		state = models.RunStateFailed
		s.logger.WithError(err).Error("Replay run failed")
	}

	if run != nil {
		if run.FinishTime.IsZero() {
			run.FinishTime = time.Now()
		}
		s.tracker.Update(run.Status(state, err))
	} else {
		status := models.RunStatus{State: state, FinishTime: time.Now()}
		if err != nil {
			status.LastError = err.Error()
		}
		s.tracker.Update(status)
	}
	return run, err
}
