package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntegrityFlags(t *testing.T) {
	thresholds := IntegrityThresholds{
		FocusLossLimit:   5,
		BlurTimeLimitSec: 60,
		PrintLimit:       0,
	}

	tests := []struct {
		name       string
		focusLoss  int
		blurTime   float64
		printTries int
		want       []string
	}{
		{"clean", 0, 0, 0, nil},
		{"at every limit", 5, 60, 0, nil},
		{"focus loss over", 6, 0, 0, []string{FlagFocusLoss}},
		{"blur time over", 0, 61, 0, []string{FlagBlurTime}},
		{"print attempt", 0, 0, 1, []string{FlagPrintAttempts}},
		{"everything over", 10, 300, 2, []string{FlagFocusLoss, FlagBlurTime, FlagPrintAttempts}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IntegrityFlags(tt.focusLoss, tt.blurTime, tt.printTries, thresholds))
		})
	}
}
