package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"proctrace/internal/analysis"
	"proctrace/internal/config"
	"proctrace/internal/models"
	"proctrace/internal/repository"
	"proctrace/internal/services"
	"proctrace/internal/utils"
)

// AnalysisHandler fronts the behavioral detectors: trajectory similarity,
// fingerprint grouping, and the study-effort heuristic.
type AnalysisHandler struct {
	log      *zap.Logger
	cfg      *config.Manager
	analyzer *services.Analyzer
	results  *repository.Results
}

func NewAnalysisHandler(log *zap.Logger, cfg *config.Manager, analyzer *services.Analyzer, results *repository.Results) *AnalysisHandler {
	return &AnalysisHandler{log: log, cfg: cfg, analyzer: analyzer, results: results}
}

// similarityRequest selects the sessions to compare. Empty SessionIDs means
// the latest stored sessions, optionally narrowed by test type.
type similarityRequest struct {
	SessionIDs []string `json:"sessionIds"`
	TestType   string   `json:"testType"`
	Detail     bool     `json:"detail"`
}

// Similarity runs the pairwise trajectory comparison and returns the
// pair -> question -> percent mapping.
func (h *AnalysisHandler) Similarity(c *gin.Context) {
	var req similarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	for _, id := range req.SessionIDs {
		if !utils.IsValidSessionID(id) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id: " + id})
			return
		}
	}

	run, err := h.analyzer.CompareSessions(c.Request.Context(), req.SessionIDs, req.TestType, req.Detail)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "similarity run timed out"})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "requested session not found"})
		default:
			h.log.Error("Similarity run failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.Header("X-Analysis-Run", run.RunID)
	c.JSON(http.StatusOK, run)
}

// Fingerprints serves the device-signature grouping report. Query params:
// include_client_ip overrides the configured identity policy for this
// request, only_anomalous drops clean groups.
func (h *AnalysisHandler) Fingerprints(c *gin.Context) {
	var policy *analysis.IdentityPolicy
	if raw, set := c.GetQuery("include_client_ip"); set {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "include_client_ip must be a boolean"})
			return
		}
		policy = &analysis.IdentityPolicy{IncludeClientIP: include}
	}
	onlyAnomalous, _ := strconv.ParseBool(c.DefaultQuery("only_anomalous", "false"))

	report, err := h.analyzer.FingerprintGroups(c.Request.Context(), policy, onlyAnomalous)
	if err != nil {
		h.log.Error("Fingerprint grouping failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fingerprint grouping failed"})
		return
	}

	c.Header("X-Analysis-Run", report.RunID)
	c.JSON(http.StatusOK, report)
}

// Behavior serves the study-effort report: either one session by id or the
// most recent completed sessions.
func (h *AnalysisHandler) Behavior(c *gin.Context) {
	if sessionID := c.Query("session_id"); sessionID != "" {
		if !utils.IsValidSessionID(sessionID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
			return
		}
		report, err := h.analyzer.BehaviorForSession(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			h.log.Error("Behavior report failed", zap.String("session_id", sessionID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "behavior report failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"reports": []*services.BehaviorReport{report}})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > maxPerPage {
		limit = 50
	}
	rows, _, err := h.results.List(c.Request.Context(), repository.ListFilter{
		Status: models.StatusCompleted,
		Limit:  limit,
	})
	if err != nil {
		h.log.Error("Failed to list sessions for behavior report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "behavior report failed"})
		return
	}

	reports := make([]*services.BehaviorReport, 0, len(rows))
	for i := range rows {
		report, err := h.analyzer.BehaviorForSession(c.Request.Context(), rows[i].SessionID)
		if err != nil {
			h.log.Error("Behavior report failed", zap.String("session_id", rows[i].SessionID), zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
