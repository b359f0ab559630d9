package analysis

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proctrace/internal/models"
)

// curve builds an n-point trajectory with 50ms spacing, well under the
// pause threshold, tracing the given shape function.
func curve(n int, shape func(i int) (float64, float64)) []models.TrajectoryPoint {
	out := make([]models.TrajectoryPoint, n)
	for i := 0; i < n; i++ {
		x, y := shape(i)
		out[i] = models.TrajectoryPoint{X: x, Y: y, T: int64(i * 50)}
	}
	return out
}

func diagonal(i int) (float64, float64) { return float64(i * 10), float64(i * 5) }

func zigzag(i int) (float64, float64) { return float64(i * 7), float64((i % 4) * 30) }

func TestScoreSelfSimilarityIsPerfect(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	stroke := curve(20, diagonal)

	score, err := scorer.Score(stroke, stroke)
	require.NoError(t, err)
	assert.Equal(t, 100, score)
}

func TestScoreDeterministic(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	a := curve(30, diagonal)
	b := curve(25, zigzag)

	first, err := scorer.Score(a, b)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := scorer.Score(a, b)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScoreSymmetric(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	a := curve(30, diagonal)
	b := curve(18, zigzag)

	ab, err := scorer.Score(a, b)
	require.NoError(t, err)
	ba, err := scorer.Score(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestScoreBounded(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	rng := rand.New(rand.NewSource(7))

	random := func(n int) []models.TrajectoryPoint {
		out := make([]models.TrajectoryPoint, n)
		var ts int64
		for i := range out {
			ts += int64(rng.Intn(400)) // occasional pauses included
			out[i] = models.TrajectoryPoint{X: rng.Float64() * 1920, Y: rng.Float64() * 1080, T: ts}
		}
		return out
	}

	for i := 0; i < 25; i++ {
		a := random(5 + rng.Intn(80))
		b := random(5 + rng.Intn(80))
		score, err := scorer.Score(a, b)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
}

func TestScoreShortStrokeRule(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	short := curve(5, diagonal)
	long := curve(50, diagonal)

	score, err := scorer.Score(short, long)
	require.NoError(t, err)
	assert.Equal(t, 0, score, "a sub-minimum stroke must score exactly 0")

	score, err = scorer.Score(long, short)
	require.NoError(t, err)
	assert.Equal(t, 0, score)
}

func TestScoreShortAfterExtraction(t *testing.T) {
	// 30 raw points, but a long pause after the 4th leaves a 4-point
	// stroke, which is below the comparability minimum.
	scorer := NewScorer(DefaultConfig())
	traj := curve(30, diagonal)
	for i := 4; i < len(traj); i++ {
		traj[i].T += 10_000
	}

	score, err := scorer.Score(traj, curve(50, diagonal))
	require.NoError(t, err)
	assert.Equal(t, 0, score)
}

func TestScoreRejectsNonMonotonicTimestamps(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	bad := curve(20, diagonal)
	bad[7].T = bad[6].T - 100

	_, err := scorer.Score(bad, curve(20, diagonal))
	require.ErrorIs(t, err, ErrNonMonotonic)
}

func TestScoreRejectsOversizedStroke(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxStrokePoints = 100
	scorer := NewScorer(cfg)

	huge := curve(150, diagonal)
	_, err := scorer.Score(huge, curve(50, diagonal))
	require.ErrorIs(t, err, ErrStrokeTooLong)
}

func TestContrastBoostPreservesOrder(t *testing.T) {
	scorer := NewScorer(DefaultConfig())

	// Below the clamp, boosted scores must keep their relative order.
	assert.Less(t, scorer.finalize(81), scorer.finalize(84))
	assert.Less(t, scorer.finalize(84), scorer.finalize(89))

	// Known boost values: 80 + (s-80)*1.5.
	assert.Equal(t, 87, scorer.finalize(84.5)) // 80 + 4.5*1.5 = 86.75 -> 87
	assert.Equal(t, 95, scorer.finalize(90))
	assert.Equal(t, 100, scorer.finalize(99)) // 108.5 clamps

	// At or below the threshold nothing changes.
	assert.Equal(t, 80, scorer.finalize(80))
	assert.Equal(t, 42, scorer.finalize(42.4))
}

func TestDetailBreakdown(t *testing.T) {
	scorer := NewScorer(DefaultConfig())

	// Same shape drawn twice at the same place: every factor is perfect.
	stroke := curve(20, diagonal)
	bd, err := scorer.Detail(stroke, stroke)
	require.NoError(t, err)
	assert.Equal(t, 100.0, bd.Shape)
	assert.Equal(t, 100.0, bd.Scale)
	assert.Equal(t, 100.0, bd.Position)
	assert.Equal(t, 100, bd.Combined)

	// Same shape shifted 400px right: shape and scale hold, position drops
	// to (1 - 400/1000) * 100 = 60.
	shifted := curve(20, func(i int) (float64, float64) {
		x, y := diagonal(i)
		return x + 400, y
	})
	bd, err = scorer.Detail(stroke, shifted)
	require.NoError(t, err)
	assert.Equal(t, 100.0, bd.Shape)
	assert.Equal(t, 100.0, bd.Scale)
	assert.Equal(t, 60.0, bd.Position)

	// Short strokes yield an all-zero breakdown, mirroring Score.
	bd, err = scorer.Detail(curve(3, diagonal), stroke)
	require.NoError(t, err)
	assert.Equal(t, 0, bd.Combined)
	assert.Equal(t, 0.0, bd.Shape)
}
