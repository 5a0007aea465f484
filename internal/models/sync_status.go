package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Run states reported by RunStatus
const (
	RunStateIdle      = "idle"
	RunStateRunning   = "running"
	RunStateCompleted = "completed"
	RunStateFailed    = "failed"
)

// RunStatus summarises the most recent replay run
type RunStatus struct {
	RunID        string           `json:"run_id"`
	State        string           `json:"state"`
	StartTime    time.Time        `json:"start_time"`
	FinishTime   time.Time        `json:"finish_time,omitempty"`
	Repositories int              `json:"repositories"`
	Replayed     map[Category]int `json:"replayed"`
	Reconciled   int              `json:"reconciled"`
	Pushed       bool             `json:"pushed"`
	LastError    string           `json:"last_error,omitempty"`
}

// String returns the JSON representation of the run status
func (s *RunStatus) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal run status: %v"}`, err)
	}
	return string(data)
}

// FetchProgress tracks parallel enumeration of source repositories
type FetchProgress struct {
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	LastItem  string    `json:"last_item"`
	StartTime time.Time `json:"start_time"`
	UpdatedAt time.Time `json:"updated_at"`
}
