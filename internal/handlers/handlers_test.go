package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"proctrace/internal/models"
)

func TestMetricEventTypeBoundsCardinality(t *testing.T) {
	assert.Equal(t, models.EventFocusLoss, metricEventType(models.EventFocusLoss))
	assert.Equal(t, models.EventSelfCheck, metricEventType(models.EventSelfCheck))
	assert.Equal(t, "other", metricEventType("custom_client_event"))
	assert.Equal(t, "other", metricEventType("another_one"))
}

func TestPercentChange(t *testing.T) {
	assert.InDelta(t, 50.0, percentChange(100, 150), 1e-9)
	assert.InDelta(t, -25.0, percentChange(100, 75), 1e-9)
	assert.InDelta(t, 0.0, percentChange(0, 0), 1e-9)
	assert.InDelta(t, 100.0, percentChange(0, 5), 1e-9, "a fresh deployment reads as growth, not a division error")
}
