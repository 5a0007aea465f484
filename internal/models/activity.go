package models

import (
	"fmt"
	"strconv"
	"time"
)

// Category identifies the kind of replayable activity
type Category string

const (
	CategoryCommit      Category = "commit"
	CategoryPullRequest Category = "pull_request"
	CategoryIssue       Category = "issue"
	CategoryBranch      Category = "branch"
)

// ActivityItem is one unit of remote history eligible for replay
type ActivityItem struct {
	Category   Category `json:"category"`
	Identifier string   `json:"identifier"`
	// Number is set for pull requests and issues
	Number        int       `json:"number,omitempty"`
	Repository    string    `json:"repository"`
	AuthoredAt    time.Time `json:"authored_at"`
	CommittedAt   time.Time `json:"committed_at"`
	IsMergeCommit bool      `json:"is_merge_commit,omitempty"`
	DisplayLabel  string    `json:"display_label,omitempty"`
}

// NewCommitItem builds a commit activity item
func NewCommitItem(repo, sha string, authoredAt, committedAt time.Time, parents int) ActivityItem {
	return ActivityItem{
		Category:      CategoryCommit,
		Identifier:    sha,
		Repository:    repo,
		AuthoredAt:    authoredAt,
		CommittedAt:   committedAt,
		IsMergeCommit: parents > 1,
	}
}

// NewPullRequestItem builds a pull request activity item
func NewPullRequestItem(repo string, number int, title string, createdAt time.Time) ActivityItem {
	return ActivityItem{
		Category:     CategoryPullRequest,
		Identifier:   strconv.Itoa(number),
		Number:       number,
		Repository:   repo,
		AuthoredAt:   createdAt,
		CommittedAt:  createdAt,
		DisplayLabel: title,
	}
}

// NewIssueItem builds an issue activity item
func NewIssueItem(repo string, number int, title string, createdAt time.Time) ActivityItem {
	item := NewPullRequestItem(repo, number, title, createdAt)
	item.Category = CategoryIssue
	return item
}

// Kind is the wording used in marker lines and commit messages
func (i ActivityItem) Kind() string {
	switch i.Category {
	case CategoryCommit:
		if i.IsMergeCommit {
			return "merge commit"
		}
		return "commit"
	case CategoryPullRequest:
		return "PR"
	case CategoryIssue:
		return "Issue"
	default:
		return string(i.Category)
	}
}

// CommitMessage renders the synthetic commit message for the item
func (i ActivityItem) CommitMessage() string {
	if i.Category == CategoryIssue {
		return fmt.Sprintf("Sync Issue: %d - %s", i.Number, i.DisplayLabel)
	}
	return fmt.Sprintf("Sync %s: %s", i.Kind(), i.Identifier)
}

// MarkerLine renders the line appended to the marker file for the item
func (i ActivityItem) MarkerLine() string {
	return fmt.Sprintf("Sync %s: %s\n", i.Kind(), i.Identifier)
}

// Dated reports whether the source supplied any timestamp for the item
func (i ActivityItem) Dated() bool {
	return !i.CommittedAt.IsZero() || !i.AuthoredAt.IsZero()
}
