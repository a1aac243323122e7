package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"discoverydraft-backend/models"
	"discoverydraft-backend/pipeline"
	"discoverydraft-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DiscoveryHandler handles HTTP requests for discovery runs
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *zap.Logger
	background       func(fn func())
}

// HandlerOption is a functional option for DiscoveryHandler
type HandlerOption func(*DiscoveryHandler)

// WithHandlerLogger sets the logger
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *DiscoveryHandler) {
		h.logger = logger
	}
}

// WithBackground replaces how run processing is started, mainly for tests
func WithBackground(run func(fn func())) HandlerOption {
	return func(h *DiscoveryHandler) {
		h.background = run
	}
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, opts ...HandlerOption) *DiscoveryHandler {
	h := &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           zap.NewNop(),
		background:       func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondPipelineError maps a fatal pipeline error to an HTTP response
func respondPipelineError(c *gin.Context, err error) {
	var verr *pipeline.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": verr.Error(),
				"fields":  verr.Fields,
			},
		})
		return
	}
	var incomplete *pipeline.IncompleteCaseError
	if errors.As(err, &incomplete) {
		respondError(c, http.StatusUnprocessableEntity, "INCOMPLETE_CASE", incomplete.Error())
		return
	}
	respondError(c, http.StatusInternalServerError, "PIPELINE_FAILED", err.Error())
}

func bindSubmission(c *gin.Context) (*models.RawSubmission, bool) {
	var raw models.RawSubmission
	if err := c.ShouldBindJSON(&raw); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return nil, false
	}
	return &raw, true
}

func parseRunID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid run ID format")
		return uuid.Nil, false
	}
	return id, true
}

// PreviewSummary counts what a plan would dispatch
type PreviewSummary struct {
	CaseUnits    int `json:"caseUnits"`
	DocumentSets int `json:"documentSets"`
	Requests     int `json:"requests"`
	FlagWarnings int `json:"flagWarnings"`
}

// Preview handles POST /api/discovery/preview
func (h *DiscoveryHandler) Preview(c *gin.Context) {
	raw, ok := bindSubmission(c)
	if !ok {
		return
	}

	plan, err := h.discoveryService.Preview(c.Request.Context(), raw)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"summary": PreviewSummary{
				CaseUnits:    len(plan.CaseUnits),
				DocumentSets: len(plan.Sets),
				Requests:     len(plan.Requests),
				FlagWarnings: len(plan.Warnings),
			},
			"plan": plan,
		},
	})
}

// StartRun handles POST /api/discovery/runs
func (h *DiscoveryHandler) StartRun(c *gin.Context) {
	raw, ok := bindSubmission(c)
	if !ok {
		return
	}

	result, err := h.discoveryService.StartRun(c.Request.Context(), service.StartRunRequest{Submission: raw})
	if err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			respondPipelineError(c, err)
			return
		}
		respondError(c, http.StatusInternalServerError, "RUN_CREATION_FAILED", err.Error())
		return
	}

	// Use background context (not request context) to avoid cancellation
	runID := result.RunID
	h.background(func() {
		if err := h.discoveryService.ProcessRun(context.Background(), runID, raw); err != nil {
			// Stored on the run; clients poll for it
			h.logger.Warn("Discovery run failed",
				zap.String("run_id", runID.String()), zap.Error(err))
		}
	})

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"run_id":  runID,
			"status":  models.RunStatusPending,
			"message": "Discovery run created. Poll /api/discovery/runs/:id for updates.",
		},
	})
}

// GetRun handles GET /api/discovery/runs/:id
func (h *DiscoveryHandler) GetRun(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}

	result, err := h.discoveryService.GetRun(c.Request.Context(), service.GetRunRequest{RunID: id})
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Discovery run not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Run,
	})
}

// ListRuns handles GET /api/discovery/runs
func (h *DiscoveryHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.discoveryService.ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    runs,
	})
}

// GetManifest handles GET /api/discovery/runs/:id/manifest
func (h *DiscoveryHandler) GetManifest(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}

	manifest, err := h.discoveryService.GetManifest(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrManifestNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Run manifest not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    manifest,
	})
}
