package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ProcessedState is the ledger of replayed identifiers, partitioned by category.
// Lists keep insertion order and only ever grow.
type ProcessedState struct {
	SHAs     []string
	PRs      []int
	Issues   []int
	Branches []string

	index map[Category]map[string]struct{}
}

// processedStateJSON is the on-disk layout of the ledger
type processedStateJSON struct {
	SHAs     []string `json:"shas"`
	PRs      []int    `json:"prs"`
	Issues   []int    `json:"issues"`
	Branches []string `json:"branches"`
}

// NewProcessedState returns an empty ledger
func NewProcessedState() *ProcessedState {
	s := &ProcessedState{
		SHAs:     []string{},
		PRs:      []int{},
		Issues:   []int{},
		Branches: []string{},
	}
	s.reindex()
	return s
}

func (s *ProcessedState) reindex() {
	s.index = map[Category]map[string]struct{}{
		CategoryCommit:      {},
		CategoryPullRequest: {},
		CategoryIssue:       {},
		CategoryBranch:      {},
	}
	for _, sha := range s.SHAs {
		s.index[CategoryCommit][sha] = struct{}{}
	}
	for _, n := range s.PRs {
		s.index[CategoryPullRequest][strconv.Itoa(n)] = struct{}{}
	}
	for _, n := range s.Issues {
		s.index[CategoryIssue][strconv.Itoa(n)] = struct{}{}
	}
	for _, b := range s.Branches {
		s.index[CategoryBranch][b] = struct{}{}
	}
}

func (s *ProcessedState) has(c Category, id string) bool {
	if s.index == nil {
		s.reindex()
	}
	_, ok := s.index[c][id]
	return ok
}

// Contains reports whether the item's identifier was already recorded
func (s *ProcessedState) Contains(item ActivityItem) bool {
	return s.has(item.Category, item.Identifier)
}

// ContainsBranch reports whether a qualified branch is fully processed
func (s *ProcessedState) ContainsBranch(qualified string) bool {
	return s.has(CategoryBranch, qualified)
}

// Record adds the item's identifier. Recording an existing identifier is a no-op.
func (s *ProcessedState) Record(item ActivityItem) error {
	if s.Contains(item) {
		return nil
	}
	switch item.Category {
	case CategoryCommit:
		s.SHAs = append(s.SHAs, item.Identifier)
	case CategoryPullRequest, CategoryIssue:
		n, err := strconv.Atoi(item.Identifier)
		if err != nil {
			return fmt.Errorf("invalid %s identifier %q: %w", item.Category, item.Identifier, err)
		}
		if item.Category == CategoryPullRequest {
			s.PRs = append(s.PRs, n)
		} else {
			s.Issues = append(s.Issues, n)
		}
	case CategoryBranch:
		s.Branches = append(s.Branches, item.Identifier)
	default:
		return fmt.Errorf("unknown category %q", item.Category)
	}
	s.index[item.Category][item.Identifier] = struct{}{}
	return nil
}

// RecordBranch marks a qualified branch as fully processed
func (s *ProcessedState) RecordBranch(qualified string) {
	// branch identifiers are free-form strings, Record cannot fail for them
	_ = s.Record(ActivityItem{Category: CategoryBranch, Identifier: qualified})
}

// Clone returns a deep copy
func (s *ProcessedState) Clone() *ProcessedState {
	c := &ProcessedState{
		SHAs:     append([]string{}, s.SHAs...),
		PRs:      append([]int{}, s.PRs...),
		Issues:   append([]int{}, s.Issues...),
		Branches: append([]string{}, s.Branches...),
	}
	c.reindex()
	return c
}

// Counts returns the number of identifiers per category
func (s *ProcessedState) Counts() map[Category]int {
	return map[Category]int{
		CategoryCommit:      len(s.SHAs),
		CategoryPullRequest: len(s.PRs),
		CategoryIssue:       len(s.Issues),
		CategoryBranch:      len(s.Branches),
	}
}

// IsSupersetOf reports whether every identifier of other is present in s
func (s *ProcessedState) IsSupersetOf(other *ProcessedState) bool {
	for _, sha := range other.SHAs {
		if !s.has(CategoryCommit, sha) {
			return false
		}
	}
	for _, n := range other.PRs {
		if !s.has(CategoryPullRequest, strconv.Itoa(n)) {
			return false
		}
	}
	for _, n := range other.Issues {
		if !s.has(CategoryIssue, strconv.Itoa(n)) {
			return false
		}
	}
	for _, b := range other.Branches {
		if !s.has(CategoryBranch, b) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the four ledger keys, empty lists as []
func (s *ProcessedState) MarshalJSON() ([]byte, error) {
	out := processedStateJSON{
		SHAs:     s.SHAs,
		PRs:      s.PRs,
		Issues:   s.Issues,
		Branches: s.Branches,
	}
	if out.SHAs == nil {
		out.SHAs = []string{}
	}
	if out.PRs == nil {
		out.PRs = []int{}
	}
	if out.Issues == nil {
		out.Issues = []int{}
	}
	if out.Branches == nil {
		out.Branches = []string{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the ledger layout; absent or null keys load as empty.
// The document itself must be an object.
func (s *ProcessedState) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("ledger document must be a JSON object")
	}
	var in processedStateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = *NewProcessedState()
	s.SHAs = append(s.SHAs, in.SHAs...)
	s.PRs = append(s.PRs, in.PRs...)
	s.Issues = append(s.Issues, in.Issues...)
	s.Branches = append(s.Branches, in.Branches...)
	s.reindex()
	return nil
}
