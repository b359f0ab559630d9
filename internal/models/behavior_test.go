package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrajectoryPointWireFormat(t *testing.T) {
	var p TrajectoryPoint
	require.NoError(t, json.Unmarshal([]byte(`[120.5, 300, 1755900000123]`), &p))
	assert.Equal(t, 120.5, p.X)
	assert.Equal(t, 300.0, p.Y)
	assert.Equal(t, int64(1755900000123), p.T)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `[120.5, 300, 1755900000123]`, string(out))
}

func TestTrajectoryPointFractionalTimestamp(t *testing.T) {
	var p TrajectoryPoint
	require.NoError(t, json.Unmarshal([]byte(`[1, 2, 1500.75]`), &p))
	assert.Equal(t, int64(1500), p.T)
}

func TestTrajectoryPointRejectsBadInput(t *testing.T) {
	var p TrajectoryPoint
	assert.Error(t, json.Unmarshal([]byte(`{"x": 1}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`["a", "b", "c"]`), &p))
}

func TestQuestionBehaviorDecodesCaptureShape(t *testing.T) {
	payload := `{
		"latency": 4200,
		"answerChanges": 2,
		"focusLoss": 1,
		"blurTime": 3.5,
		"mouseMovements": [[10, 20, 0], [11, 21, 16], [12, 22, 33]]
	}`

	var qb QuestionBehavior
	require.NoError(t, json.Unmarshal([]byte(payload), &qb))
	assert.Equal(t, 4200, qb.LatencyMs)
	assert.Equal(t, 3.5, qb.BlurTimeSec)
	require.Len(t, qb.MouseMovements, 3)
	assert.Equal(t, TrajectoryPoint{X: 11, Y: 21, T: 16}, qb.MouseMovements[1])
}

func TestSessionMetricsDuration(t *testing.T) {
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	m := SessionMetrics{StartTime: start, EndTime: start.Add(150 * time.Second)}
	assert.Equal(t, 150.0, m.DurationSec())

	backwards := SessionMetrics{StartTime: start, EndTime: start.Add(-time.Minute)}
	assert.Equal(t, 0.0, backwards.DurationSec())
}
