package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/ledger"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
)

// Trigger starts a replay run in the background
type Trigger interface {
	Trigger(ctx context.Context) error
}

// StatusSource reports the latest run and enumeration progress
type StatusSource interface {
	Status() models.RunStatus
	Progress() models.FetchProgress
}

// Handler serves the status API
type Handler struct {
	// runCtx outlives requests; runs started over HTTP use it
	runCtx  context.Context
	trigger Trigger
	status  StatusSource
	store   ledger.Store
	logger  *logrus.Logger
}

// NewHandler creates a new API handler
func NewHandler(runCtx context.Context, trigger Trigger, status StatusSource, store ledger.Store, logger *logrus.Logger) *Handler {
	return &Handler{
		runCtx:  runCtx,
		trigger: trigger,
		status:  status,
		store:   store,
		logger:  logger,
	}
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC()})
}

// GetStatus godoc
// @Summary Latest run status
// @Description Status of the latest replay run and the progress of repository enumeration
// @Tags sync
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	run := h.status.Status()
	progress := h.status.Progress()

	replayed := make(map[string]int, len(run.Replayed))
	for category, n := range run.Replayed {
		replayed[string(category)] = n
	}

	c.JSON(http.StatusOK, StatusResponse{
		Run: RunStatus{
			RunID:        run.RunID,
			State:        run.State,
			StartTime:    run.StartTime,
			FinishTime:   run.FinishTime,
			Repositories: run.Repositories,
			Replayed:     replayed,
			Reconciled:   run.Reconciled,
			Pushed:       run.Pushed,
			LastError:    run.LastError,
		},
		Progress: FetchProgress(progress),
	})
}

// GetLedger godoc
// @Summary Persisted ledger
// @Description Identifiers already replayed, as persisted after the last successful push
// @Tags ledger
// @Produce json
// @Success 200 {object} LedgerResponse
// @Failure 500 {object} ErrorResponse
// @Router /ledger [get]
func (h *Handler) GetLedger(c *gin.Context) {
	state, err := h.store.Load(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load ledger")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load ledger"})
		return
	}

	counts := make(map[string]int, 4)
	for category, n := range state.Counts() {
		counts[string(category)] = n
	}
	c.JSON(http.StatusOK, LedgerResponse{
		Counts:   counts,
		SHAs:     state.SHAs,
		PRs:      state.PRs,
		Issues:   state.Issues,
		Branches: state.Branches,
	})
}

// StartSync godoc
// @Summary Start a replay run
// @Tags sync
// @Produce json
// @Success 202 {object} SyncResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sync [post]
func (h *Handler) StartSync(c *gin.Context) {
	err := h.trigger.Trigger(h.runCtx)
	switch {
	case err == nil:
		h.logger.Info("Replay run triggered over HTTP")
		c.JSON(http.StatusAccepted, SyncResponse{Status: "started"})
	case apperrors.IsRunInProgress(err):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		h.logger.WithError(err).Error("Failed to trigger replay run")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to start replay run"})
	}
}
