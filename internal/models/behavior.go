package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TrajectoryPoint is a single pointer sample. On the wire it is a compact
// [x, y, timestampMs] array, which is what the capture script ships.
type TrajectoryPoint struct {
	X float64
	Y float64
	T int64 // milliseconds
}

// MarshalJSON renders the point back into its [x, y, t] wire form.
func (p TrajectoryPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.X, p.Y, float64(p.T)})
}

// UnmarshalJSON accepts [x, y, t] with numeric timestamps. Capture scripts
// sometimes send fractional milliseconds; these are truncated.
func (p *TrajectoryPoint) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("trajectory point must be a numeric array: %w", err)
	}
	if len(raw) < 3 {
		return fmt.Errorf("trajectory point needs [x, y, t], got %d values", len(raw))
	}
	p.X = raw[0]
	p.Y = raw[1]
	p.T = int64(raw[2])
	return nil
}

// QuestionBehavior is the per-question telemetry block recorded while the
// test taker answers one question.
type QuestionBehavior struct {
	LatencyMs      int               `json:"latency"`
	AnswerChanges  int               `json:"answerChanges"`
	FocusLoss      int               `json:"focusLoss"`
	BlurTimeSec    float64           `json:"blurTime"`
	MouseMovements []TrajectoryPoint `json:"mouseMovements"`
}

// KeyboardDynamics holds raw keystroke timing events captured while the
// user typed their name fields. Stored verbatim; nothing downstream parses
// the individual events yet.
type KeyboardDynamics struct {
	LastName   []map[string]any `json:"lastName,omitempty"`
	FirstName  []map[string]any `json:"firstName,omitempty"`
	MiddleName []map[string]any `json:"middleName,omitempty"`
}

// BehavioralMetrics is the full behavioral payload of a session.
type BehavioralMetrics struct {
	PerQuestion []QuestionBehavior `json:"perQuestion"`
	Keyboard    *KeyboardDynamics  `json:"keyboard,omitempty"`
}

// SessionMetrics aggregates whole-session integrity counters.
type SessionMetrics struct {
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	TotalFocusLoss int       `json:"totalFocusLoss"`
	TotalBlurTime  float64   `json:"totalBlurTime"` // seconds
	PrintAttempts  int       `json:"printAttempts"`
}

// DurationSec returns the wall-clock test duration, zero for bad clocks.
func (m SessionMetrics) DurationSec() float64 {
	d := m.EndTime.Sub(m.StartTime).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

// UserInfo identifies the test taker as typed into the form.
type UserInfo struct {
	LastName   string `json:"lastName" binding:"required,max=100"`
	FirstName  string `json:"firstName" binding:"required,max=100"`
	MiddleName string `json:"middleName,omitempty" binding:"max=100"`
	Position   string `json:"position" binding:"required,max=200"`
}

// Grade mirrors the grade object computed client-side.
type Grade struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Class  string `json:"class"`
}

// TestResults is the score block of a submission.
type TestResults struct {
	Percentage             int              `json:"percentage" binding:"min=0,max=100"`
	TotalQuestions         int              `json:"totalQuestions"`
	CorrectAnswers         int              `json:"correctAnswers"`
	IncorrectAnswers       int              `json:"incorrectAnswers"`
	Grade                  Grade            `json:"grade"`
	IncorrectQuestionsList []map[string]any `json:"incorrectQuestionsList,omitempty"`
}

// FingerprintInfo carries the privacy-reduced device signature. The hash may
// be absent when the client blocks fingerprinting.
type FingerprintInfo struct {
	PrivacySafeHash string         `json:"privacySafeHash,omitempty"`
	PrivacySafe     map[string]any `json:"privacySafe,omitempty"`
}

// PersistentID is the long-lived client identifier (first-party cookie).
type PersistentID struct {
	Cookie *string `json:"cookie"`
}

// SaveResultsRequest is the complete submission a proctored test client
// posts when the test finishes.
type SaveResultsRequest struct {
	TestType          string             `json:"testType" binding:"required"`
	SessionID         string             `json:"sessionId" binding:"required"`
	UserInfo          UserInfo           `json:"userInfo" binding:"required"`
	TestResults       TestResults        `json:"testResults" binding:"required"`
	PersistentID      PersistentID       `json:"persistentId"`
	Fingerprint       FingerprintInfo    `json:"fingerprint"`
	SessionMetrics    SessionMetrics     `json:"sessionMetrics" binding:"required"`
	BehavioralMetrics *BehavioralMetrics `json:"behavioralMetrics,omitempty"`
}

// LogEventRequest is a single proctoring event from the client.
type LogEventRequest struct {
	SessionID string         `json:"sessionId" binding:"required"`
	EventType string         `json:"eventType" binding:"required"`
	Details   map[string]any `json:"details,omitempty"`
	Page      string         `json:"page,omitempty"`
}
