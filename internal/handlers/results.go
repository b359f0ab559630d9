package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"proctrace/internal/analysis"
	"proctrace/internal/config"
	"proctrace/internal/models"
	"proctrace/internal/repository"
	"proctrace/internal/services"
	"proctrace/internal/telemetry"
	"proctrace/internal/utils"
	"proctrace/internal/ws"
)

const (
	maxPerPage       = 1000
	abandonedIdleMin = 30
)

// ResultsHandler ingests completed sessions and serves the stored records
// back to reviewers.
type ResultsHandler struct {
	log      *zap.Logger
	cfg      *config.Manager
	results  *repository.Results
	events   *repository.Events
	certs    *repository.Certificates
	catalog  *models.TestCatalog
	analyzer *services.Analyzer
	hub      *ws.Hub
	tel      *telemetry.Telemetry
}

func NewResultsHandler(log *zap.Logger, cfg *config.Manager, results *repository.Results, events *repository.Events,
	certs *repository.Certificates, catalog *models.TestCatalog, analyzer *services.Analyzer, hub *ws.Hub, tel *telemetry.Telemetry) *ResultsHandler {
	return &ResultsHandler{
		log:      log,
		cfg:      cfg,
		results:  results,
		events:   events,
		certs:    certs,
		catalog:  catalog,
		analyzer: analyzer,
		hub:      hub,
		tel:      tel,
	}
}

// SaveResults stores a finished test submission, issues a certificate for a
// passing score and notifies connected review clients.
func (h *ResultsHandler) SaveResults(c *gin.Context) {
	var req models.SaveResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Failed to bind results payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid results payload"})
		return
	}

	if !utils.IsValidSessionID(req.SessionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if len(req.TestType) > 64 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "test type too long"})
		return
	}
	if h.catalog.Find(req.TestType) == nil {
		// Unknown assessments are stored anyway; forensics must not drop
		// data just because the catalog is stale.
		h.log.Warn("Results for unlisted test type", zap.String("test_type", req.TestType))
	}

	// Malformed telemetry is rejected at the boundary so the detectors can
	// assume validated rows later.
	if req.BehavioralMetrics != nil {
		for q, behavior := range req.BehavioralMetrics.PerQuestion {
			if err := analysis.ValidateTrajectory(behavior.MouseMovements); err != nil {
				h.log.Warn("Rejected malformed trajectory",
					zap.String("session_id", req.SessionID),
					zap.Int("question", q),
					zap.Error(err),
				)
				c.JSON(http.StatusBadRequest, gin.H{"error": "malformed trajectory in question " + strconv.Itoa(q)})
				return
			}
		}
	}

	row, err := h.buildRow(&req, c.ClientIP())
	if err != nil {
		h.log.Error("Failed to encode submission", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store results"})
		return
	}

	if err := h.results.SaveCompleted(c.Request.Context(), row); err != nil {
		if errors.Is(err, repository.ErrDuplicateSession) {
			h.tel.RecordDuplicateSave()
			c.JSON(http.StatusConflict, gin.H{"error": "session already has saved results"})
			return
		}
		h.log.Error("Failed to save results", zap.String("session_id", row.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store results"})
		return
	}
	h.tel.RecordSessionSaved(row.TestType, row.Passed)

	resp := gin.H{"status": "success", "sessionId": row.SessionID, "passed": row.Passed}
	if row.Passed {
		cert, err := h.certs.Issue(c.Request.Context(), row, time.Now())
		if err != nil {
			// The result is saved; a failed issue can be retried on re-submit.
			h.log.Error("Failed to issue certificate", zap.String("session_id", row.SessionID), zap.Error(err))
		} else {
			h.tel.RecordCertificateIssued(row.TestType)
			resp["documentNumber"] = cert.DocumentNumber
		}
	}

	h.hub.Broadcast(ws.Notice{Type: ws.NoticeNewResult, SessionID: row.SessionID, TestType: row.TestType})
	h.notifyFingerprintAnomaly(c, row)

	c.JSON(http.StatusOK, resp)
}

// notifyFingerprintAnomaly checks whether this save put the session's device
// signature into identity conflict and pushes a notice if so.
func (h *ResultsHandler) notifyFingerprintAnomaly(c *gin.Context, row *models.SessionResult) {
	anomalous, err := h.analyzer.FingerprintAnomaly(c.Request.Context(), row.FingerprintHash)
	if err != nil {
		h.log.Error("Fingerprint anomaly check failed", zap.String("session_id", row.SessionID), zap.Error(err))
		return
	}
	if anomalous {
		h.log.Warn("Fingerprint identity conflict detected",
			zap.String("session_id", row.SessionID),
			zap.String("fingerprint_hash", row.FingerprintHash),
		)
		h.hub.Broadcast(ws.Notice{Type: ws.NoticeAnomaly, SessionID: row.SessionID, TestType: row.TestType})
	}
}

func (h *ResultsHandler) buildRow(req *models.SaveResultsRequest, clientIP string) (*models.SessionResult, error) {
	snapshot := h.cfg.Current()

	passing := snapshot.Integrity.PassingScore
	if def := h.catalog.Find(req.TestType); def != nil && def.PassingScore > 0 {
		passing = def.PassingScore
	}

	row := &models.SessionResult{
		SessionID:      req.SessionID,
		TestType:       req.TestType,
		LastName:       req.UserInfo.LastName,
		FirstName:      req.UserInfo.FirstName,
		MiddleName:     req.UserInfo.MiddleName,
		Position:       req.UserInfo.Position,
		ClientIP:       clientIP,
		Score:          req.TestResults.Percentage,
		Passed:         req.TestResults.Percentage >= passing,
		TotalFocusLoss: req.SessionMetrics.TotalFocusLoss,
		TotalBlurTime:  req.SessionMetrics.TotalBlurTime,
		PrintAttempts:  req.SessionMetrics.PrintAttempts,
	}
	if req.PersistentID.Cookie != nil {
		row.PersistentID = *req.PersistentID.Cookie
	}
	if !req.SessionMetrics.StartTime.IsZero() {
		start := req.SessionMetrics.StartTime
		row.StartedAt = &start
	}
	end := req.SessionMetrics.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	row.CompletedAt = &end

	row.FingerprintHash = req.Fingerprint.PrivacySafeHash
	fingerprint, err := json.Marshal(req.Fingerprint)
	if err != nil {
		return nil, err
	}
	row.Fingerprint = datatypes.JSON(fingerprint)

	testResults, err := json.Marshal(req.TestResults)
	if err != nil {
		return nil, err
	}
	row.TestResults = datatypes.JSON(testResults)

	if req.BehavioralMetrics != nil {
		behavioral, err := json.Marshal(req.BehavioralMetrics)
		if err != nil {
			return nil, err
		}
		row.Behavioral = datatypes.JSON(behavioral)
	}
	return row, nil
}

// resultView is one listed session decorated for review.
type resultView struct {
	models.SessionResult
	TestTitle      string   `json:"testTitle"`
	GradeClass     string   `json:"gradeClass"`
	IntegrityFlags []string `json:"integrityFlags,omitempty"`
}

// List serves stored sessions with preset filters and pagination.
// Presets: all (default), today, week, anomalies.
func (h *ResultsHandler) List(c *gin.Context) {
	snapshot := h.cfg.Current()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if perPage < 1 {
		perPage = 50
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	filter := repository.ListFilter{
		TestType: c.Query("test_type"),
		Status:   models.StatusCompleted,
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	}

	switch preset := c.DefaultQuery("preset", "all"); preset {
	case "all":
	case "today":
		now := time.Now()
		filter.Since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "week":
		filter.Since = time.Now().AddDate(0, 0, -7)
	case "anomalies":
		filter.Flagged = &repository.IntegrityLimits{
			FocusLoss:     snapshot.Integrity.FocusLossLimit,
			BlurTimeSec:   snapshot.Integrity.BlurTimeLimitSec,
			PrintAttempts: snapshot.Integrity.PrintLimit,
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown preset: " + preset})
		return
	}

	rows, total, err := h.results.List(c.Request.Context(), filter)
	if err != nil {
		h.log.Error("Failed to list results", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list results"})
		return
	}

	views := make([]resultView, 0, len(rows))
	for i := range rows {
		views = append(views, h.decorate(&rows[i], snapshot))
	}

	c.JSON(http.StatusOK, gin.H{
		"results": views,
		"total":   total,
		"page":    page,
		"perPage": perPage,
	})
}

func (h *ResultsHandler) decorate(row *models.SessionResult, snapshot *config.Config) resultView {
	return resultView{
		SessionResult: *row,
		TestTitle:     h.catalog.Title(row.TestType),
		GradeClass:    models.GradeClass(row.Score),
		IntegrityFlags: analysis.IntegrityFlags(row.TotalFocusLoss, row.TotalBlurTime, row.PrintAttempts,
			snapshot.Integrity.Thresholds()),
	}
}

// Get serves one stored session with its integrity flags and certificate.
func (h *ResultsHandler) Get(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if !utils.IsValidSessionID(sessionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	row, err := h.results.GetBySession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.log.Error("Failed to load session", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	resp := gin.H{"result": h.decorate(row, h.cfg.Current())}
	if cert, err := h.certs.GetBySession(c.Request.Context(), sessionID); err == nil {
		resp["certificate"] = cert
	}
	c.JSON(http.StatusOK, resp)
}

// SessionEvents serves the raw proctoring event log for one session.
func (h *ResultsHandler) SessionEvents(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if !utils.IsValidSessionID(sessionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	events, err := h.events.ListForSession(c.Request.Context(), sessionID, maxPerPage)
	if err != nil {
		h.log.Error("Failed to load session events", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "events": events})
}

// abandonedView is one never-finished session with its violation rollup.
type abandonedView struct {
	SessionID  string           `json:"sessionId"`
	StartedAt  *time.Time       `json:"startedAt,omitempty"`
	ClientIP   string           `json:"clientIp"`
	Events     int64            `json:"events"`
	Violations map[string]int64 `json:"violations,omitempty"`
}

// Abandoned lists sessions that logged proctoring events but never submitted
// results, with their per-type violation counts.
func (h *ResultsHandler) Abandoned(c *gin.Context) {
	cutoff := time.Now().Add(-abandonedIdleMin * time.Minute)
	rows, err := h.results.ListAbandoned(c.Request.Context(), cutoff)
	if err != nil {
		h.log.Error("Failed to list abandoned sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list abandoned sessions"})
		return
	}

	views := make([]abandonedView, 0, len(rows))
	for i := range rows {
		counts, err := h.events.CountByType(c.Request.Context(), rows[i].SessionID)
		if err != nil {
			h.log.Error("Failed to count events", zap.String("session_id", rows[i].SessionID), zap.Error(err))
			continue
		}

		var total int64
		violations := make(map[string]int64)
		for eventType, n := range counts {
			total += n
			switch eventType {
			case models.EventFocusLoss, models.EventScreenshotAttempt, models.EventPrintAttempt:
				violations[eventType] = n
			}
		}
		views = append(views, abandonedView{
			SessionID:  rows[i].SessionID,
			StartedAt:  rows[i].StartedAt,
			ClientIP:   rows[i].ClientIP,
			Events:     total,
			Violations: violations,
		})
	}
	c.JSON(http.StatusOK, gin.H{"abandoned": views})
}
