package models

import (
	"time"

	"gorm.io/datatypes"
)

// Proctoring event types with dedicated handling. Clients may log other
// types; they are stored as-is and only surface in the raw event log.
const (
	EventFocusLoss         = "focus_loss"
	EventScreenshotAttempt = "screenshot_attempt"
	EventPrintAttempt      = "print_attempt"
	EventModuleViewTime    = "module_view_time"
	EventScrollDepth       = "scroll_depth_milestone"
	EventSelfCheck         = "self_check_answered"
)

// ProctoringEvent is a single client-side event tied to a session.
type ProctoringEvent struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	SessionID string         `gorm:"size:128;index" json:"sessionId"`
	EventType string         `gorm:"size:64;index" json:"eventType"`
	Details   datatypes.JSON `json:"details,omitempty"`
	Page      string         `gorm:"size:500" json:"page,omitempty"`
	ClientIP  string         `gorm:"size:45" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
}
