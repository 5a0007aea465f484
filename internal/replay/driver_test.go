package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/ledger"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/workcopy"
)

func commitItem(sha string, authored, committed int, parents int) models.ActivityItem {
	return models.NewCommitItem("me/x", sha, day(authored), day(committed), parents)
}

// newLedger writes content as the ledger file and returns a store over it
func newLedger(t *testing.T, content string) (*ledger.FileStore, string) {
	path := filepath.Join(t.TempDir(), "processed_shas.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return ledger.NewFileStore(path, testLogger()), path
}

func loadLedger(t *testing.T, store *ledger.FileStore) *models.ProcessedState {
	state, err := store.Load(context.Background())
	require.NoError(t, err)
	return state
}

func TestDriver_ReplaysOnlyNovelCommits(t *testing.T) {
	source := newFakeSource()
	source.commits["me/x@main"] = []models.ActivityItem{commitItem("abc123", 1, 1, 1), commitItem("def456", 2, 2, 1)}
	wc := &fakeWorkingCopy{}
	store, _ := newLedger(t, `{"shas": ["abc123"], "prs": [], "issues": [], "branches": []}`)

	run, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Sync commit: def456"}, wc.messages())
	assert.Equal(t, []string{"Sync commit: def456\n"}, wc.lines)
	assert.Equal(t, []string{workcopy.SyncFile}, wc.staged)
	assert.Equal(t, 1, wc.pushed)
	assert.True(t, run.CommitsMade)
	assert.True(t, run.Pushed)
	assert.Equal(t, 1, run.Replayed[models.CategoryCommit])

	state := loadLedger(t, store)
	assert.Equal(t, []string{"abc123", "def456"}, state.SHAs)
	assert.Empty(t, state.Branches)

	spec := wc.history[0]
	assert.Equal(t, me, spec.Author)
	assert.Equal(t, me, spec.Committer)
	assert.Equal(t, day(2), spec.AuthoredAt)
	assert.Equal(t, day(2), spec.CommittedAt)
}

func TestDriver_Idempotent(t *testing.T) {
	source := newFakeSource()
	source.commits["me/x@main"] = []models.ActivityItem{commitItem("a1", 1, 1, 1)}
	source.issues["me/x"] = []models.ActivityItem{models.NewPullRequestItem("me/x", 3, "Feature", day(4))}
	wc := &fakeWorkingCopy{}
	store, path := newLedger(t, "")
	ctx := context.Background()

	_, err := newTestDriver(source, wc, store, Options{Reconcile: true}).Run(ctx)
	require.NoError(t, err)
	require.Len(t, wc.history, 2)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)

	run, err := newTestDriver(source, wc, store, Options{Reconcile: true}).Run(ctx)
	require.NoError(t, err)
	assert.False(t, run.CommitsMade)
	assert.False(t, run.Pushed)
	assert.Zero(t, run.Reconciled)
	assert.Len(t, wc.history, 2)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	infoAfter, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), infoAfter.ModTime())
}

func TestDriver_CrossBranchDedup(t *testing.T) {
	source := newFakeSource()
	source.branches["me/x"] = []models.BranchRef{{Name: "main"}, {Name: "feature"}, {Name: "Master"}}
	source.commits["me/x@main"] = []models.ActivityItem{commitItem("shared", 1, 1, 1)}
	source.commits["me/x@feature"] = []models.ActivityItem{commitItem("shared", 1, 1, 1), commitItem("f1", 2, 2, 1)}
	wc := &fakeWorkingCopy{}
	store, _ := newLedger(t, "")

	_, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Sync commit: shared", "Sync commit: f1"}, wc.messages())
	state := loadLedger(t, store)
	// default branches are never marked fully processed
	assert.Equal(t, []string{"me/x:feature"}, state.Branches)
}

func TestDriver_SkipsFullyProcessedBranches(t *testing.T) {
	source := newFakeSource()
	source.branches["me/x"] = []models.BranchRef{{Name: "main"}, {Name: "feature"}}
	source.commits["me/x@feature"] = []models.ActivityItem{commitItem("f9", 9, 9, 1)}
	wc := &fakeWorkingCopy{}
	store, _ := newLedger(t, `{"branches": ["me/x:feature"]}`)

	run, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, run.CommitsMade)
	assert.Equal(t, []string{"me/x@main"}, source.commitCalls)
}

func TestDriver_RepositoryDefaultBranchNotRecorded(t *testing.T) {
	source := newFakeSource()
	repo := models.RepoRef{Owner: "me", Name: "y", FullName: "me/y", DefaultBranch: "develop"}
	source.repos = []models.RepoRef{repo}
	source.branches["me/y"] = []models.BranchRef{{Name: "develop"}, {Name: "release"}}
	source.commits["me/y@develop"] = []models.ActivityItem{models.NewCommitItem("me/y", "d1", day(1), day(1), 1)}
	wc := &fakeWorkingCopy{}
	store, _ := newLedger(t, "")

	_, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"me/y:release"}, loadLedger(t, store).Branches)
}

func TestDriver_ChronologicalReplay(t *testing.T) {
	source := newFakeSource()
	source.commits["me/x@main"] = []models.ActivityItem{
		commitItem("newest", 1, 5, 1),
		models.NewCommitItem("me/x", "undated", time.Time{}, time.Time{}, 1),
		commitItem("oldest", 1, 2, 1),
		commitItem("middle", 3, 3, 2),
	}
	wc := &fakeWorkingCopy{}
	store, _ := newLedger(t, "")

	_, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Sync commit: oldest",
		"Sync merge commit: middle",
		"Sync commit: newest",
		"Sync commit: undated",
	}, wc.messages())
	for i := 1; i < len(wc.history); i++ {
		assert.False(t, wc.history[i].CommittedAt.Before(wc.history[i-1].CommittedAt))
	}
	assert.Equal(t, fixedNow, wc.history[3].CommittedAt)
}

func TestDriver_ChronologicalAcrossRepositories(t *testing.T) {
	source := newFakeSource()
	repoY := models.RepoRef{Owner: "me", Name: "y", FullName: "me/y", DefaultBranch: "main"}
	source.repos = []models.RepoRef{repoX, repoY}
	source.branches["me/y"] = []models.BranchRef{{Name: "main"}}
	source.commits["me/x@main"] = []models.ActivityItem{commitItem("x-late", 4, 4, 1), commitItem("x-early", 1, 1, 1)}
	source.commits["me/y@main"] = []models.ActivityItem{
		models.NewCommitItem("me/y", "y-mid", day(2), day(2), 1),
		models.NewCommitItem("me/y", "y-last", day(6), day(6), 1),
	}
	source.issues["me/x"] = []models.ActivityItem{models.NewIssueItem("me/x", 3, "Bug", day(3))}
	wc := &fakeWorkingCopy{}
	store, _ := newLedger(t, "")

	_, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Sync commit: x-early",
		"Sync commit: y-mid",
		"Sync commit: x-late",
		"Sync commit: y-last",
		"Sync Issue: 3 - Bug",
	}, wc.messages())
	assert.Equal(t, []string{"x-early", "y-mid", "x-late", "y-last"}, loadLedger(t, store).SHAs)
}

func TestDriver_IssuesAndPullRequests(t *testing.T) {
	source := newFakeSource()
	source.issues["me/x"] = []models.ActivityItem{
		models.NewIssueItem("me/x", 42, "Bug", day(7)),
		models.NewPullRequestItem("me/x", 7, "Add login", day(3)),
		models.NewPullRequestItem("me/x", 6, "Done already", day(2)),
	}
	wc := &fakeWorkingCopy{}
	store, _ := newLedger(t, `{"prs": [6]}`)

	_, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	require.NoError(t, err)

	// listing order, no sort
	assert.Equal(t, []string{"Sync Issue: 42 - Bug", "Sync PR: 7"}, wc.messages())
	assert.Equal(t, []string{"Sync Issue: 42\n", "Sync PR: 7\n"}, wc.lines)
	assert.Equal(t, day(7), wc.history[0].AuthoredAt)
	assert.Equal(t, day(7), wc.history[0].CommittedAt)

	state := loadLedger(t, store)
	assert.Equal(t, []int{42}, state.Issues)
	assert.Equal(t, []int{6, 7}, state.PRs)
}

func TestDriver_PushFailureLeavesLedgerUntouched(t *testing.T) {
	source := newFakeSource()
	source.commits["me/x@main"] = []models.ActivityItem{commitItem("c1", 1, 1, 1), commitItem("c2", 2, 2, 1)}
	wc := &fakeWorkingCopy{pushErr: apperrors.NewWorkingCopyError("push", nil)}
	original := `{"shas": ["c0"]}`
	store, path := newLedger(t, original)
	ctx := context.Background()

	run, err := newTestDriver(source, wc, store, Options{Reconcile: true}).Run(ctx)
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitWorkingCopy, apperrors.ExitCode(err))
	assert.True(t, run.CommitsMade)
	assert.False(t, run.Pushed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))

	// the next run finds the unpushed commits in the local history and does not replay them again
	wc.pushErr = nil
	run, err = newTestDriver(source, wc, store, Options{Reconcile: true}).Run(ctx)
	require.NoError(t, err)
	assert.False(t, run.CommitsMade)
	assert.Equal(t, 2, run.Reconciled)
	assert.True(t, run.Pushed)
	assert.Len(t, wc.history, 2)
	assert.Equal(t, []string{"c0", "c2", "c1"}, loadLedger(t, store).SHAs)
}

func TestDriver_PushFailureWithoutReconcileReplaysAgain(t *testing.T) {
	source := newFakeSource()
	source.commits["me/x@main"] = []models.ActivityItem{commitItem("c1", 1, 1, 1)}
	wc := &fakeWorkingCopy{pushErr: apperrors.NewWorkingCopyError("push", nil)}
	store, _ := newLedger(t, "")
	ctx := context.Background()

	_, err := newTestDriver(source, wc, store, Options{}).Run(ctx)
	require.Error(t, err)

	wc.pushErr = nil
	_, err = newTestDriver(source, wc, store, Options{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sync commit: c1", "Sync commit: c1"}, wc.messages())
}

func TestDriver_SourceFailureAborts(t *testing.T) {
	source := newFakeSource()
	source.err = apperrors.NewSourceReadError("GET /repos/me/x/commits (page 2)", nil)
	source.issues["me/x"] = []models.ActivityItem{models.NewIssueItem("me/x", 1, "x", day(1))}
	wc := &fakeWorkingCopy{}
	store, path := newLedger(t, "")

	_, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitSourceRead, apperrors.ExitCode(err))
	assert.Empty(t, wc.history)
	assert.NoFileExists(t, path)
}

func TestDriver_CommitFailureAborts(t *testing.T) {
	source := newFakeSource()
	source.commits["me/x@main"] = []models.ActivityItem{commitItem("c1", 1, 1, 1)}
	wc := &fakeWorkingCopy{commitErr: apperrors.NewWorkingCopyError("commit", nil)}
	store, path := newLedger(t, "")

	_, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	assert.True(t, apperrors.IsWorkingCopy(err))
	assert.Zero(t, wc.pushed)
	assert.NoFileExists(t, path)
}

func TestDriver_CorruptLedgerAborts(t *testing.T) {
	wc := &fakeWorkingCopy{}
	store, _ := newLedger(t, `{"shas": [`)

	_, err := newTestDriver(newFakeSource(), wc, store, Options{}).Run(context.Background())
	assert.Equal(t, apperrors.ExitLedger, apperrors.ExitCode(err))
	assert.Zero(t, wc.clones)
}

func TestDriver_ExcludedRepositories(t *testing.T) {
	source := newFakeSource()
	other := models.RepoRef{Owner: "me", Name: "dotfiles", FullName: "me/dotfiles"}
	source.repos = append(source.repos, other)
	source.branches["me/dotfiles"] = []models.BranchRef{{Name: "main"}}
	source.commits["me/dotfiles@main"] = []models.ActivityItem{models.NewCommitItem("me/dotfiles", "dot1", day(1), day(1), 1)}
	source.commits["me/x@main"] = []models.ActivityItem{commitItem("x1", 1, 1, 1)}
	wc := &fakeWorkingCopy{}
	store, _ := newLedger(t, "")

	run, err := newTestDriver(source, wc, store, Options{ExcludeRepos: []string{"dotfiles"}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.RepoRef{repoX}, run.Repositories)
	assert.Equal(t, []string{"Sync commit: x1"}, wc.messages())
}

func TestDriver_NoRepositories(t *testing.T) {
	source := newFakeSource()
	source.repos = nil
	wc := &fakeWorkingCopy{}
	store, path := newLedger(t, "")

	run, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, run.CommitsMade)
	assert.Zero(t, wc.clones)
	assert.NoFileExists(t, path)
}

func TestDriver_ClonesAndPullsOncePerRun(t *testing.T) {
	source := newFakeSource()
	source.repos = []models.RepoRef{repoX, {Owner: "me", Name: "z", FullName: "me/z"}}
	wc := &fakeWorkingCopy{}
	store, _ := newLedger(t, "")

	_, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, wc.clones)
	assert.Equal(t, 1, wc.pulls)
}

func TestDriver_Monotonic(t *testing.T) {
	source := newFakeSource()
	source.branches["me/x"] = []models.BranchRef{{Name: "main"}, {Name: "topic"}}
	source.commits["me/x@main"] = []models.ActivityItem{commitItem("m1", 1, 1, 1)}
	source.commits["me/x@topic"] = []models.ActivityItem{commitItem("t1", 2, 2, 1)}
	source.issues["me/x"] = []models.ActivityItem{models.NewIssueItem("me/x", 5, "Bug", day(3))}
	wc := &fakeWorkingCopy{}
	store, _ := newLedger(t, `{"shas": ["zz"], "prs": [1], "issues": [2], "branches": ["me/q:dev"]}`)
	before := loadLedger(t, store)

	_, err := newTestDriver(source, wc, store, Options{}).Run(context.Background())
	require.NoError(t, err)

	after := loadLedger(t, store)
	assert.True(t, after.IsSupersetOf(before))
	assert.Equal(t, []string{"zz", "m1", "t1"}, after.SHAs)
	assert.Equal(t, []string{"me/q:dev", "me/x:topic"}, after.Branches)
}

func TestIsDefaultBranch(t *testing.T) {
	tests := []struct {
		branch string
		repo   models.RepoRef
		want   bool
	}{
		{"main", models.RepoRef{}, true},
		{"MASTER", models.RepoRef{}, true},
		{"develop", models.RepoRef{DefaultBranch: "develop"}, true},
		{"develop", models.RepoRef{DefaultBranch: "main"}, false},
		{"maintenance", models.RepoRef{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.branch, func(t *testing.T) {
			assert.Equal(t, tt.want, isDefaultBranch(tt.repo, tt.branch))
		})
	}
}
