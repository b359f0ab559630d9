package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsSavedCarriesTestTypeAndOutcome(t *testing.T) {
	tel := New()
	tel.RecordSessionSaved("fire-safety", true)
	tel.RecordSessionSaved("fire-safety", true)
	tel.RecordSessionSaved("fire-safety", false)
	tel.RecordSessionSaved("first-aid", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(tel.sessionsSaved.WithLabelValues("fire-safety", "passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.sessionsSaved.WithLabelValues("fire-safety", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.sessionsSaved.WithLabelValues("first-aid", "passed")))
}

func TestComparisonSkipsCountedByReason(t *testing.T) {
	tel := New()
	tel.RecordComparisonSkip("input_too_large")
	tel.RecordComparisonSkip("input_too_large")
	tel.RecordComparisonSkip("non_monotonic")

	assert.Equal(t, 2.0, testutil.ToFloat64(tel.pairsSkipped.WithLabelValues("input_too_large")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.pairsSkipped.WithLabelValues("non_monotonic")))
}

func TestCertificatesIssuedByTestType(t *testing.T) {
	tel := New()
	tel.RecordCertificateIssued("fire-safety")

	assert.Equal(t, 1.0, testutil.ToFloat64(tel.certsIssued.WithLabelValues("fire-safety")))
}

func TestAnalysisDurationObservedInSeconds(t *testing.T) {
	tel := New()
	tel.RecordComparisonRun(1500*time.Millisecond, 3)

	families, err := tel.registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != "proctrace_analysis_duration_seconds" {
			continue
		}
		hist := family.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(1), hist.GetSampleCount())
		assert.InDelta(t, 1.5, hist.GetSampleSum(), 1e-9)
		return
	}
	t.Fatal("analysis duration histogram not registered")
}
