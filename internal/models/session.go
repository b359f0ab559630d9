package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Session lifecycle states. A row is created as pending when the first
// proctoring event arrives and flips to completed when results are saved.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// SessionResult is one proctored test session as stored. The behavioral
// payload is kept verbatim in jsonb so the analysis endpoints can replay it;
// the integrity counters are denormalized into columns for filtering.
type SessionResult struct {
	ID              uint           `gorm:"primaryKey" json:"-"`
	SessionID       string         `gorm:"size:128;uniqueIndex" json:"sessionId"`
	TestType        string         `gorm:"size:64;index" json:"testType"`
	Status          string         `gorm:"size:16;index;default:pending" json:"status"`
	LastName        string         `gorm:"size:100" json:"lastName"`
	FirstName       string         `gorm:"size:100" json:"firstName"`
	MiddleName      string         `gorm:"size:100" json:"middleName,omitempty"`
	Position        string         `gorm:"size:200" json:"position,omitempty"`
	PersistentID    string         `gorm:"size:128;index" json:"-"`
	ClientIP        string         `gorm:"size:45" json:"-"`
	FingerprintHash string         `gorm:"size:64;index" json:"fingerprintHash,omitempty"`
	Fingerprint     datatypes.JSON `json:"fingerprint,omitempty"`
	Score           int            `json:"score"`
	Passed          bool           `json:"passed"`
	StartedAt       *time.Time     `json:"startedAt,omitempty"`
	CompletedAt     *time.Time     `gorm:"index" json:"completedAt,omitempty"`
	TotalFocusLoss  int            `json:"totalFocusLoss"`
	TotalBlurTime   float64        `json:"totalBlurTime"`
	PrintAttempts   int            `json:"printAttempts"`
	TestResults     datatypes.JSON `json:"testResults,omitempty"`
	Behavioral      datatypes.JSON `json:"-"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"-"`
}

// HolderName renders the stored name parts as "Last First Middle".
func (s *SessionResult) HolderName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.LastName, s.FirstName, s.MiddleName} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, " ")
}

// BehavioralPayload decodes the stored behavioral jsonb. A nil result with
// nil error means the session carried no behavioral data.
func (s *SessionResult) BehavioralPayload() (*BehavioralMetrics, error) {
	if len(s.Behavioral) == 0 {
		return nil, nil
	}
	var payload BehavioralMetrics
	if err := json.Unmarshal(s.Behavioral, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GradeClass maps a percentage score onto the reporting bucket used across
// result listings.
func GradeClass(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 80:
		return "good"
	case score >= 70:
		return "satisfactory"
	case score >= 60:
		return "unsatisfactory"
	default:
		return "poor"
	}
}
