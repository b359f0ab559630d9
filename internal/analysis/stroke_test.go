package analysis

import (
	"testing"

	"proctrace/internal/models"
)

func points(ts ...int64) []models.TrajectoryPoint {
	out := make([]models.TrajectoryPoint, len(ts))
	for i, t := range ts {
		out[i] = models.TrajectoryPoint{X: float64(i), Y: float64(i * 2), T: t}
	}
	return out
}

func TestExtractStroke(t *testing.T) {
	tests := []struct {
		name      string
		input     []models.TrajectoryPoint
		threshold float64
		wantLen   int
	}{
		{
			name:      "pause truncates before the gap",
			input:     points(0, 100, 200, 900, 1000),
			threshold: 0.25,
			wantLen:   3,
		},
		{
			name:      "no pause keeps everything",
			input:     points(0, 100, 200, 300, 400),
			threshold: 0.25,
			wantLen:   5,
		},
		{
			name:      "gap exactly at threshold is not a pause",
			input:     points(0, 250, 500),
			threshold: 0.25,
			wantLen:   3,
		},
		{
			name:      "gap just over threshold is",
			input:     points(0, 251, 500),
			threshold: 0.25,
			wantLen:   1,
		},
		{
			name:      "empty trajectory unchanged",
			input:     nil,
			threshold: 0.25,
			wantLen:   0,
		},
		{
			name:      "single point unchanged",
			input:     points(0),
			threshold: 0.25,
			wantLen:   1,
		},
		{
			name:      "pause at the very first delta keeps one point",
			input:     points(0, 5000, 5100),
			threshold: 0.25,
			wantLen:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractStroke(tt.input, tt.threshold)
			if len(got) != tt.wantLen {
				t.Fatalf("ExtractStroke() returned %d points, want %d", len(got), tt.wantLen)
			}
			// The stroke must be a prefix of the input, untouched.
			for i := range got {
				if got[i] != tt.input[i] {
					t.Fatalf("point %d changed: got %+v, want %+v", i, got[i], tt.input[i])
				}
			}
		})
	}
}
