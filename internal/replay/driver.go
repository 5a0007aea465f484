// Package replay turns remote activity into synthetic commits on the destination repository.
package replay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/batch"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/dedup"
	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/ledger"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/utils"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/workcopy"
)

// Source reads the acting identity's activity
type Source interface {
	AuthenticatedLogin(ctx context.Context) (string, error)
	ListRepositories(ctx context.Context, fn func([]models.RepoRef) error) error
	ListBranches(ctx context.Context, repo models.RepoRef, allow []string, fn func([]models.BranchRef) error) error
	ListCommits(ctx context.Context, repo models.RepoRef, author, branch string, fn func([]models.ActivityItem) error) error
	ListIssuesAndPRs(ctx context.Context, repo models.RepoRef, creator string, fn func([]models.ActivityItem) error) error
}

// WorkingCopy mutates the local clone of the destination
type WorkingCopy interface {
	EnsureCloned(ctx context.Context) error
	SyncBeforeRun(ctx context.Context) error
	AppendSyncLine(text string) error
	Stage(ctx context.Context, path string) error
	Commit(ctx context.Context, spec workcopy.CommitSpec) error
	Push(ctx context.Context) error
	Subjects(ctx context.Context) ([]string, error)
}

// Options controls what a run replays and as whom
type Options struct {
	// ExcludeRepos holds repository names (not full names) never replayed
	ExcludeRepos []string
	// BranchFilter is a case-insensitive substring allow-list for branches
	BranchFilter []string
	// Reconcile records identifiers already present in the destination history
	Reconcile bool
	Identity  models.Identity
}

// Driver performs replay runs
type Driver struct {
	source    Source
	wc        WorkingCopy
	store     ledger.Store
	processor *batch.Processor
	logger    *logrus.Logger
	opts      Options
	now       func() time.Time
}

// DriverOption configures a Driver
type DriverOption func(*Driver)

// WithClock replaces the time source used for undated items
func WithClock(now func() time.Time) DriverOption {
	return func(d *Driver) {
		d.now = now
	}
}

// NewDriver creates a replay driver
func NewDriver(source Source, wc WorkingCopy, store ledger.Store, processor *batch.Processor, logger *logrus.Logger, opts Options, dopts ...DriverOption) *Driver {
	d := &Driver{
		source:    source,
		wc:        wc,
		store:     store,
		processor: processor,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
	for _, opt := range dopts {
		opt(d)
	}
	return d
}

// repoActivity is everything enumerated for one repository before replay
type repoActivity struct {
	repo models.RepoRef
	// scanned are the branches whose commits were listed
	scanned []models.BranchRef
	commits []models.ActivityItem
	issues  []models.ActivityItem
}

// Run performs one full replay pass. The ledger is saved only after a successful push,
// and neither happens when the run found nothing to replay or reconcile.
func (d *Driver) Run(ctx context.Context) (*SyncRun, error) {
	state, err := d.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	run := NewSyncRun(state, d.now())
	logger := d.logger.WithField("run_id", run.ID)
	logger.WithField("ledger", state.Counts()).Info("Starting replay run")

	login, err := d.source.AuthenticatedLogin(ctx)
	if err != nil {
		return run, err
	}
	logger = logger.WithField("login", login)

	repos, err := d.enumerateRepos(ctx)
	if err != nil {
		return run, err
	}
	run.Repositories = repos
	logger.WithField("repositories", len(repos)).Info("Enumerated repositories")

	if len(repos) > 0 {
		if err := d.prepareWorkingCopy(ctx, run, logger); err != nil {
			return run, err
		}

		activity, err := d.enumerateActivity(ctx, login, repos, run.State.Clone())
		if err != nil {
			return run, err
		}

		if err := d.replayCommits(ctx, run, activity, logger); err != nil {
			return run, err
		}
		for _, a := range activity {
			if err := d.replayRepository(ctx, run, a, logger); err != nil {
				return run, err
			}
		}
	}

	if !run.needsPublish() {
		run.FinishTime = d.now()
		logger.Info("No new activity, nothing to push")
		return run, nil
	}

	logger.Info("Pushing all commits")
	if err := d.wc.Push(ctx); err != nil {
		return run, err
	}
	run.Pushed = true

	if err := d.store.Save(ctx, run.State); err != nil {
		return run, err
	}
	run.FinishTime = d.now()

	logger.WithFields(logrus.Fields{
		"replayed":   run.Replayed,
		"reconciled": run.Reconciled,
		"duration":   run.FinishTime.Sub(run.StartTime).String(),
	}).Info("All activity has been processed")
	return run, nil
}

// enumerateRepos lists every visible repository minus the excluded names
func (d *Driver) enumerateRepos(ctx context.Context) ([]models.RepoRef, error) {
	var repos []models.RepoRef
	err := d.source.ListRepositories(ctx, func(page []models.RepoRef) error {
		for _, r := range page {
			if utils.ContainsName(d.opts.ExcludeRepos, r.Name) {
				d.logger.WithField("repository", r.FullName).Debug("Repository excluded")
				continue
			}
			repos = append(repos, r)
		}
		return nil
	})
	return repos, err
}

// prepareWorkingCopy clones and pulls the destination, then reconciles the ledger with its history
func (d *Driver) prepareWorkingCopy(ctx context.Context, run *SyncRun, logger *logrus.Entry) error {
	if err := d.wc.EnsureCloned(ctx); err != nil {
		return err
	}
	if err := d.wc.SyncBeforeRun(ctx); err != nil {
		return err
	}
	if !d.opts.Reconcile {
		return nil
	}

	subjects, err := d.wc.Subjects(ctx)
	if err != nil {
		return err
	}
	for _, subject := range subjects {
		item, ok := dedup.ParseSyncMessage(subject)
		if !ok {
			continue
		}
		changed, err := run.recordReconciled(item)
		if err != nil {
			return apperrors.NewInternalError("reconcile "+subject, err)
		}
		if changed {
			logger.WithFields(logrus.Fields{
				"category":   item.Category,
				"identifier": item.Identifier,
			}).Info("Recorded activity already present in destination history")
		}
	}
	return nil
}

// enumerateActivity lists branches, commits, issues and pull requests of every
// repository in parallel. It only reads; processed is a snapshot of the ledger.
func (d *Driver) enumerateActivity(ctx context.Context, login string, repos []models.RepoRef, processed *models.ProcessedState) ([]repoActivity, error) {
	label := func(r models.RepoRef) string { return r.FullName }
	return batch.Map(ctx, d.processor, repos, label, func(ctx context.Context, repo models.RepoRef) (repoActivity, error) {
		a := repoActivity{repo: repo}

		var branches []models.BranchRef
		err := d.source.ListBranches(ctx, repo, d.opts.BranchFilter, func(page []models.BranchRef) error {
			branches = append(branches, page...)
			return nil
		})
		if err != nil {
			return a, fmt.Errorf("repository %s: %w", repo.FullName, err)
		}

		for _, b := range branches {
			if processed.ContainsBranch(models.QualifiedBranch(repo, b.Name)) {
				d.logger.WithFields(logrus.Fields{
					"repository": repo.FullName,
					"branch":     b.Name,
				}).Debug("Skipping fully processed branch")
				continue
			}
			err := d.source.ListCommits(ctx, repo, login, b.Name, func(page []models.ActivityItem) error {
				a.commits = append(a.commits, page...)
				return nil
			})
			if err != nil {
				return a, fmt.Errorf("repository %s branch %s: %w", repo.FullName, b.Name, err)
			}
			a.scanned = append(a.scanned, b)
		}

		err = d.source.ListIssuesAndPRs(ctx, repo, login, func(page []models.ActivityItem) error {
			a.issues = append(a.issues, page...)
			return nil
		})
		if err != nil {
			return a, fmt.Errorf("repository %s: %w", repo.FullName, err)
		}
		return a, nil
	})
}

// replayCommits replays the novel commits of every repository in one
// chronological sequence, so commit dates never regress within a run
func (d *Driver) replayCommits(ctx context.Context, run *SyncRun, activity []repoActivity, logger *logrus.Entry) error {
	var all []models.ActivityItem
	for _, a := range activity {
		all = append(all, a.commits...)
	}

	commits := dedup.DedupeCommitsAcrossBranches(all)
	novel := dedup.FilterNovel(commits, run.State)
	if skipped := len(commits) - len(novel); skipped > 0 {
		logger.WithField("count", skipped).Info("Skipping already processed commits")
	}
	for _, item := range dedup.OrderForReplay(novel, d.now()) {
		if err := d.replayItem(ctx, run, item, logger.WithField("repository", item.Repository)); err != nil {
			return err
		}
	}
	return nil
}

// replayRepository records the scanned branches of one repository, then
// replays its novel issues and pull requests in listing order
func (d *Driver) replayRepository(ctx context.Context, run *SyncRun, a repoActivity, logger *logrus.Entry) error {
	logger = logger.WithField("repository", a.repo.FullName)
	logger.Info("Processing repository")

	for _, b := range a.scanned {
		if isDefaultBranch(a.repo, b.Name) {
			continue
		}
		run.State.RecordBranch(models.QualifiedBranch(a.repo, b.Name))
	}

	issues := dedup.FilterNovel(a.issues, run.State)
	if skipped := len(a.issues) - len(issues); skipped > 0 {
		logger.WithField("count", skipped).Info("Skipping already processed issues and pull requests")
	}
	for _, item := range dedup.ResolveTimestamps(issues, d.now()) {
		if err := d.replayItem(ctx, run, item, logger); err != nil {
			return err
		}
	}
	return nil
}

// replayItem appends the marker line and creates one synthetic commit for item
func (d *Driver) replayItem(ctx context.Context, run *SyncRun, item models.ActivityItem, logger *logrus.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.wc.AppendSyncLine(item.MarkerLine()); err != nil {
		return err
	}
	if err := d.wc.Stage(ctx, workcopy.SyncFile); err != nil {
		return err
	}
	err := d.wc.Commit(ctx, workcopy.CommitSpec{
		Message:     item.CommitMessage(),
		Author:      d.opts.Identity,
		Committer:   d.opts.Identity,
		AuthoredAt:  item.AuthoredAt,
		CommittedAt: item.CommittedAt,
	})
	if err != nil {
		return err
	}
	if err := run.recordReplay(item); err != nil {
		return apperrors.NewInternalError("record "+item.Identifier, err)
	}

	logger.WithFields(logrus.Fields{
		"kind":       item.Kind(),
		"identifier": item.Identifier,
	}).Infof("Processed %s: %s", item.Kind(), item.Identifier)
	return nil
}

// isDefaultBranch reports branches that keep receiving commits and are never marked fully processed
func isDefaultBranch(repo models.RepoRef, branch string) bool {
	if strings.EqualFold(branch, "main") || strings.EqualFold(branch, "master") {
		return true
	}
	return repo.DefaultBranch != "" && branch == repo.DefaultBranch
}
