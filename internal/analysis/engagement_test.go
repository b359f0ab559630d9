package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngagementScore(t *testing.T) {
	tests := []struct {
		name     string
		activity StudyActivity
		want     int
	}{
		{"nothing", StudyActivity{}, 0},
		{"minutes only", StudyActivity{ViewSeconds: 185}, 3},
		{"partial minute ignored", StudyActivity{ViewSeconds: 59}, 0},
		{"half scroll bonus", StudyActivity{MaxScrollDepth: 50}, 5},
		{"below half scroll", StudyActivity{MaxScrollDepth: 49}, 0},
		{"full scroll bonus", StudyActivity{MaxScrollDepth: 95}, 10},
		{"full scroll not stacked", StudyActivity{MaxScrollDepth: 100}, 10},
		{"self checks", StudyActivity{SelfChecks: 4}, 8},
		{"everything", StudyActivity{ViewSeconds: 600, MaxScrollDepth: 97, SelfChecks: 3}, 26},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EngagementScore(tt.activity))
		})
	}
}

func TestSuspiciousResult(t *testing.T) {
	thresholds := BehaviorThresholds{
		MinScore:           90,
		MaxTestDurationSec: 180,
		MinEngagementScore: 15,
	}

	tests := []struct {
		name       string
		score      int
		duration   float64
		engagement int
		want       bool
	}{
		{"fast perfect score with no study", 95, 120, 2, true},
		{"boundary score counts", 90, 120, 2, true},
		{"score below bar", 89, 120, 2, false},
		{"slow enough to be plausible", 95, 180, 2, false},
		{"well studied", 95, 120, 15, false},
		{"clean sitting", 70, 600, 40, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuspiciousResult(tt.score, tt.duration, tt.engagement, thresholds))
		})
	}
}
