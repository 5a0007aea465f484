package replay

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/batch"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/config"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/ledger"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/workcopy"
)

var (
	fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	me       = models.Identity{Name: "Main Account", Email: "main@example.com"}
	repoX    = models.RepoRef{Owner: "me", Name: "x", FullName: "me/x", DefaultBranch: "main"}
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 10, 0, 0, 0, time.UTC)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeSource serves canned activity; commits are keyed by "<full name>@<branch>"
type fakeSource struct {
	login    string
	repos    []models.RepoRef
	branches map[string][]models.BranchRef
	commits  map[string][]models.ActivityItem
	issues   map[string][]models.ActivityItem
	err      error

	mu          sync.Mutex
	commitCalls []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		login:    "me",
		repos:    []models.RepoRef{repoX},
		branches: map[string][]models.BranchRef{"me/x": {{Name: "main"}}},
		commits:  map[string][]models.ActivityItem{},
		issues:   map[string][]models.ActivityItem{},
	}
}

func (f *fakeSource) AuthenticatedLogin(ctx context.Context) (string, error) {
	return f.login, nil
}

func (f *fakeSource) ListRepositories(ctx context.Context, fn func([]models.RepoRef) error) error {
	return fn(f.repos)
}

func (f *fakeSource) ListBranches(ctx context.Context, repo models.RepoRef, allow []string, fn func([]models.BranchRef) error) error {
	return fn(f.branches[repo.FullName])
}

func (f *fakeSource) ListCommits(ctx context.Context, repo models.RepoRef, author, branch string, fn func([]models.ActivityItem) error) error {
	f.mu.Lock()
	f.commitCalls = append(f.commitCalls, repo.FullName+"@"+branch)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return fn(f.commits[repo.FullName+"@"+branch])
}

func (f *fakeSource) ListIssuesAndPRs(ctx context.Context, repo models.RepoRef, creator string, fn func([]models.ActivityItem) error) error {
	return fn(f.issues[repo.FullName])
}

// fakeWorkingCopy keeps commit history in memory and survives across runs like a real clone
type fakeWorkingCopy struct {
	history []workcopy.CommitSpec
	lines   []string
	pushed  int
	clones  int
	pulls   int
	staged  []string

	pushErr   error
	commitErr error
}

func (w *fakeWorkingCopy) EnsureCloned(ctx context.Context) error {
	w.clones++
	return nil
}

func (w *fakeWorkingCopy) SyncBeforeRun(ctx context.Context) error {
	w.pulls++
	return nil
}

func (w *fakeWorkingCopy) AppendSyncLine(text string) error {
	w.lines = append(w.lines, text)
	return nil
}

func (w *fakeWorkingCopy) Stage(ctx context.Context, path string) error {
	w.staged = append(w.staged, path)
	return nil
}

func (w *fakeWorkingCopy) Commit(ctx context.Context, spec workcopy.CommitSpec) error {
	if w.commitErr != nil {
		return w.commitErr
	}
	w.history = append(w.history, spec)
	return nil
}

func (w *fakeWorkingCopy) Push(ctx context.Context) error {
	if w.pushErr != nil {
		return w.pushErr
	}
	w.pushed = len(w.history)
	return nil
}

func (w *fakeWorkingCopy) Subjects(ctx context.Context) ([]string, error) {
	subjects := make([]string, 0, len(w.history))
	for i := len(w.history) - 1; i >= 0; i-- {
		subjects = append(subjects, w.history[i].Message)
	}
	return subjects, nil
}

func (w *fakeWorkingCopy) messages() []string {
	out := make([]string, 0, len(w.history))
	for _, c := range w.history {
		out = append(out, c.Message)
	}
	return out
}

func newTestDriver(source Source, wc WorkingCopy, store ledger.Store, opts Options) *Driver {
	if opts.Identity == (models.Identity{}) {
		opts.Identity = me
	}
	processor := batch.NewProcessor(&config.BatchConfig{Workers: 3}, testLogger())
	return NewDriver(source, wc, store, processor, testLogger(), opts, WithClock(func() time.Time { return fixedNow }))
}
