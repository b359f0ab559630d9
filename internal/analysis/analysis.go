// Package analysis holds the behavioral forensics detectors: trajectory
// similarity between test takers and device-fingerprint identity conflicts.
// Every function here is a pure computation over explicit inputs; callers
// load sessions, pass a Config, and get fresh result values back.
package analysis

import (
	"strings"

	"proctrace/internal/models"
)

// Config carries every detector tunable. It is passed by value so a running
// comparison keeps the settings it started with even if the operator reloads
// configuration mid-flight.
type Config struct {
	// PauseThreshold is the gap, in seconds, that ends the initial stroke.
	PauseThreshold float64
	// MinStrokePoints is the minimum extracted stroke length for a
	// comparison to produce signal. Shorter strokes score 0.
	MinStrokePoints int
	// MaxStrokePoints caps the points fed into DTW. Strokes beyond the cap
	// are rejected, not truncated, so a score always covers a full stroke.
	MaxStrokePoints int
	// BoostThreshold and BoostFactor shape the contrast boost that spreads
	// out scores in the suspicious range.
	BoostThreshold float64
	BoostFactor    float64
	// Workers bounds the comparison pool. Zero means one worker per CPU.
	Workers int
}

// DefaultConfig returns the tuning the detectors were calibrated with.
func DefaultConfig() Config {
	return Config{
		PauseThreshold:  0.25,
		MinStrokePoints: 10,
		MaxStrokePoints: 4000,
		BoostThreshold:  80,
		BoostFactor:     1.5,
	}
}

// Identity is the test taker's typed name, the only identity signal the
// detectors trust.
type Identity struct {
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
}

// Normalized folds the name into the canonical "lastname firstname" form
// used when counting distinct identities behind one fingerprint.
func (id Identity) Normalized() string {
	joined := strings.TrimSpace(id.LastName) + " " + strings.TrimSpace(id.FirstName)
	return strings.ToLower(strings.TrimSpace(joined))
}

// Session is the read-only view of one stored session that the detectors
// consume. PerQuestion is indexed by question number and is never mutated.
type Session struct {
	SessionID       string                    `json:"sessionId"`
	User            Identity                  `json:"userInfo"`
	TestType        string                    `json:"testType"`
	FingerprintHash string                    `json:"fingerprintHash,omitempty"`
	ClientIP        string                    `json:"clientIp,omitempty"`
	PerQuestion     []models.QuestionBehavior `json:"-"`
}
