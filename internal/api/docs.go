package api

import (
	"time"

	_ "github.com/Kamar-Folarin/github-activity-mirror/docs"
)

// ErrorResponse represents an API error
// @Description Error response from the API
// @swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	Error string `json:"error" example:"a replay run is already in progress"`
}

// HealthResponse is returned by the liveness probe
type HealthResponse struct {
	Status string    `json:"status" example:"ok"`
	Time   time.Time `json:"time"`
}

// RunStatus describes the latest replay run
// @Description Status of the latest replay run
// @swagger:model RunStatus
type RunStatus struct {
	// Identifier of the run
	RunID string `json:"run_id" example:"5f0c6f8e-2b7a-4c8e-9a3e-1d2f3a4b5c6d"`
	// Current state
	State string `json:"state" example:"completed" enums:"idle,running,completed,failed"`
	// When the run started
	StartTime time.Time `json:"start_time"`
	// When the run finished
	FinishTime time.Time `json:"finish_time"`
	// Number of repositories considered
	Repositories int `json:"repositories" example:"12"`
	// Synthetic commits made, per category
	Replayed map[string]int `json:"replayed"`
	// Identifiers recorded from the destination history without replay
	Reconciled int `json:"reconciled" example:"0"`
	// Whether the run pushed the destination
	Pushed bool `json:"pushed"`
	// Error of a failed run
	LastError string `json:"last_error,omitempty" example:"WORKING_COPY: push"`
}

// FetchProgress describes parallel enumeration of source repositories
type FetchProgress struct {
	Total     int       `json:"total" example:"12"`
	Completed int       `json:"completed" example:"7"`
	LastItem  string    `json:"last_item" example:"octocat/hello-world"`
	StartTime time.Time `json:"start_time"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusResponse is the body of GET /status
// @swagger:model StatusResponse
type StatusResponse struct {
	Run      RunStatus     `json:"run"`
	Progress FetchProgress `json:"progress"`
}

// LedgerResponse is the body of GET /ledger
// @swagger:model LedgerResponse
type LedgerResponse struct {
	// Number of identifiers per category
	Counts   map[string]int `json:"counts"`
	SHAs     []string       `json:"shas"`
	PRs      []int          `json:"prs"`
	Issues   []int          `json:"issues"`
	Branches []string       `json:"branches"`
}

// SyncResponse is returned when a run was started
type SyncResponse struct {
	Status string `json:"status" example:"started"`
}
