package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"proctrace/internal/models"
	"proctrace/internal/repository"
	"proctrace/internal/telemetry"
	"proctrace/internal/utils"
)

// EventsHandler appends client-side proctoring events to the log. The first
// event for a session id creates a pending session row, so abandoned
// sittings are visible even though they never submit results.
type EventsHandler struct {
	log     *zap.Logger
	results *repository.Results
	events  *repository.Events
	tel     *telemetry.Telemetry
}

func NewEventsHandler(log *zap.Logger, results *repository.Results, events *repository.Events, tel *telemetry.Telemetry) *EventsHandler {
	return &EventsHandler{log: log, results: results, events: events, tel: tel}
}

// LogEvent stores one proctoring event.
func (h *EventsHandler) LogEvent(c *gin.Context) {
	var req models.LogEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Failed to bind event payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	if !utils.IsValidSessionID(req.SessionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if !utils.IsValidEventType(req.EventType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event type"})
		return
	}

	now := time.Now()
	if err := h.results.EnsurePending(c.Request.Context(), req.SessionID, c.ClientIP(), now); err != nil {
		h.log.Error("Failed to ensure pending session", zap.String("session_id", req.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store event"})
		return
	}

	event := &models.ProctoringEvent{
		SessionID: req.SessionID,
		EventType: req.EventType,
		Page:      req.Page,
		ClientIP:  c.ClientIP(),
	}
	if req.Details != nil {
		data, err := json.Marshal(req.Details)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event details"})
			return
		}
		event.Details = datatypes.JSON(data)
	}

	if err := h.events.Insert(c.Request.Context(), event); err != nil {
		h.log.Error("Failed to store event",
			zap.String("session_id", req.SessionID),
			zap.String("event_type", req.EventType),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store event"})
		return
	}

	h.tel.RecordEventLogged(metricEventType(req.EventType))
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// metricEventType folds unlisted event types into one label so client bugs
// cannot explode metric cardinality.
func metricEventType(eventType string) string {
	switch eventType {
	case models.EventFocusLoss, models.EventScreenshotAttempt, models.EventPrintAttempt,
		models.EventModuleViewTime, models.EventScrollDepth, models.EventSelfCheck:
		return eventType
	default:
		return "other"
	}
}
