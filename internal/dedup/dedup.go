// Package dedup decides which activity is new and in which order it is replayed.
// Everything here is pure: no I/O and no clock reads beyond the injected now.
package dedup

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
)

type key struct {
	category   models.Category
	identifier string
}

// FilterNovel keeps the items whose identifier is not yet processed.
// Repeats within items are dropped too; the first occurrence wins.
func FilterNovel(items []models.ActivityItem, processed *models.ProcessedState) []models.ActivityItem {
	seen := make(map[key]struct{}, len(items))
	out := make([]models.ActivityItem, 0, len(items))
	for _, item := range items {
		k := key{item.Category, item.Identifier}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if processed != nil && processed.Contains(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// DedupeCommitsAcrossBranches drops commits already listed on an earlier branch
func DedupeCommitsAcrossBranches(items []models.ActivityItem) []models.ActivityItem {
	return FilterNovel(items, nil)
}

// ResolveTimestamps fills absent timestamps: the author date falls back to the
// committer date and the committer date to the author date, both to now.
func ResolveTimestamps(items []models.ActivityItem, now time.Time) []models.ActivityItem {
	out := make([]models.ActivityItem, len(items))
	for i, item := range items {
		authored, committed := item.AuthoredAt, item.CommittedAt
		item.AuthoredAt = firstSet(authored, committed, now)
		item.CommittedAt = firstSet(committed, authored, now)
		out[i] = item
	}
	return out
}

func firstSet(ts ...time.Time) time.Time {
	for _, t := range ts {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// OrderForReplay sorts items oldest first by committer date, then author date.
// Items without any date are stamped with now and placed after every dated item.
// Ties keep their input order.
func OrderForReplay(items []models.ActivityItem, now time.Time) []models.ActivityItem {
	dated := make([]models.ActivityItem, 0, len(items))
	var undated []models.ActivityItem
	for _, item := range items {
		if item.Dated() {
			dated = append(dated, item)
			continue
		}
		item.AuthoredAt, item.CommittedAt = now, now
		undated = append(undated, item)
	}

	dated = ResolveTimestamps(dated, now)
	sort.SliceStable(dated, func(i, j int) bool {
		a, b := dated[i], dated[j]
		if !a.CommittedAt.Equal(b.CommittedAt) {
			return a.CommittedAt.Before(b.CommittedAt)
		}
		return a.AuthoredAt.Before(b.AuthoredAt)
	})
	return append(dated, undated...)
}

var syncSubject = regexp.MustCompile(`^Sync (commit|merge commit|PR|Issue): ([^\s]+)(?: - .*)?$`)

// ParseSyncMessage recovers the category and identifier from a synthetic commit
// subject. Subjects that were not produced by a replay return false.
func ParseSyncMessage(subject string) (models.ActivityItem, bool) {
	m := syncSubject.FindStringSubmatch(subject)
	if m == nil {
		return models.ActivityItem{}, false
	}

	item := models.ActivityItem{Identifier: m[2]}
	switch m[1] {
	case "commit":
		item.Category = models.CategoryCommit
	case "merge commit":
		item.Category = models.CategoryCommit
		item.IsMergeCommit = true
	case "PR", "Issue":
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return models.ActivityItem{}, false
		}
		item.Category = models.CategoryPullRequest
		if m[1] == "Issue" {
			item.Category = models.CategoryIssue
		}
		item.Number = n
	}
	return item, true
}
