package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"proctrace/internal/models"
)

func TestStudyWindowAnchorsAtTestStart(t *testing.T) {
	started := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	completed := started.Add(30 * time.Minute)
	test := &models.SessionResult{
		SessionID:   "test-1",
		StartedAt:   &started,
		CompletedAt: &completed,
	}

	from, until := studyWindowFor(test)
	assert.Equal(t, started.Add(-24*time.Hour), from,
		"study the evening before the sitting must fall inside the window")
	assert.Equal(t, completed, until,
		"events during the sitting itself still count")
}

func TestStudyWindowFallsBackWithoutStartTime(t *testing.T) {
	completed := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	test := &models.SessionResult{SessionID: "test-1", CompletedAt: &completed}

	from, until := studyWindowFor(test)
	assert.Equal(t, completed.Add(-24*time.Hour), from)
	assert.Equal(t, completed, until)
}

func TestStudyWindowFallsBackToRowCreation(t *testing.T) {
	created := time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)
	test := &models.SessionResult{SessionID: "test-1", CreatedAt: created}

	from, until := studyWindowFor(test)
	assert.Equal(t, created.Add(-24*time.Hour), from)
	assert.Equal(t, created, until)
}
