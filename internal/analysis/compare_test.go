package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"proctrace/internal/models"
)

func session(id, testType string, questions ...[]models.TrajectoryPoint) Session {
	s := Session{SessionID: id, TestType: testType}
	for _, traj := range questions {
		s.PerQuestion = append(s.PerQuestion, models.QuestionBehavior{MouseMovements: traj})
	}
	return s
}

func TestPairKeyCanonical(t *testing.T) {
	assert.Equal(t, "abc_vs_xyz", PairKey("abc", "xyz"))
	assert.Equal(t, "abc_vs_xyz", PairKey("xyz", "abc"))
	assert.Equal(t, PairKey("s1", "s2"), PairKey("s2", "s1"))
}

func TestSplitPairKey(t *testing.T) {
	a, b, ok := SplitPairKey(PairKey("abc", "xyz"))
	require.True(t, ok)
	assert.Equal(t, "abc", a)
	assert.Equal(t, "xyz", b)

	_, _, ok = SplitPairKey("not-a-pair-key")
	assert.False(t, ok)
	_, _, ok = SplitPairKey("_vs_b")
	assert.False(t, ok)
}

func TestCompareIdenticalTrajectories(t *testing.T) {
	c := NewComparator(DefaultConfig(), zap.NewNop())
	traj := curve(20, diagonal)

	result, err := c.Compare(context.Background(), []Session{
		session("s1", "grammar", traj),
		session("s2", "grammar", traj),
	})
	require.NoError(t, err)

	require.Contains(t, result.Pairs, "s1_vs_s2")
	assert.Equal(t, map[int]int{0: 100}, result.Pairs["s1_vs_s2"])
	assert.Empty(t, result.Skipped)
}

func TestCompareShortStrokeScoresZero(t *testing.T) {
	c := NewComparator(DefaultConfig(), zap.NewNop())

	result, err := c.Compare(context.Background(), []Session{
		session("s1", "grammar", curve(5, diagonal)),
		session("s2", "grammar", curve(50, diagonal)),
	})
	require.NoError(t, err)

	assert.Equal(t, map[int]int{0: 0}, result.Pairs["s1_vs_s2"])
}

func TestCompareSkipsDifferentTestTypes(t *testing.T) {
	c := NewComparator(DefaultConfig(), zap.NewNop())
	traj := curve(20, diagonal)

	result, err := c.Compare(context.Background(), []Session{
		session("s1", "grammar", traj),
		session("s2", "math", traj),
	})
	require.NoError(t, err)

	assert.NotNil(t, result.Pairs)
	assert.Empty(t, result.Pairs, "cross-test pairs must not appear at all")
}

func TestCompareEligiblePairWithoutSignalKeepsEmptyMap(t *testing.T) {
	c := NewComparator(DefaultConfig(), zap.NewNop())

	// Both sessions have a question, but neither recorded any movements.
	result, err := c.Compare(context.Background(), []Session{
		session("s1", "grammar", nil),
		session("s2", "grammar", nil),
	})
	require.NoError(t, err)

	scores, ok := result.Pairs["s1_vs_s2"]
	require.True(t, ok, "an eligible pair keeps its key even with nothing to score")
	assert.Empty(t, scores)
}

func TestCompareOnlyOverlappingQuestions(t *testing.T) {
	c := NewComparator(DefaultConfig(), zap.NewNop())
	traj := curve(20, diagonal)

	result, err := c.Compare(context.Background(), []Session{
		session("s1", "grammar", traj, traj, traj),
		session("s2", "grammar", traj),
	})
	require.NoError(t, err)

	assert.Equal(t, map[int]int{0: 100}, result.Pairs["s1_vs_s2"])
}

func TestCompareSkipsDuplicateSessionIDs(t *testing.T) {
	c := NewComparator(DefaultConfig(), zap.NewNop())
	traj := curve(20, diagonal)

	result, err := c.Compare(context.Background(), []Session{
		session("s1", "grammar", traj),
		session("s1", "grammar", traj),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Pairs)
}

func TestCompareAllPairsAcrossThreeSessions(t *testing.T) {
	c := NewComparator(DefaultConfig(), zap.NewNop())
	traj := curve(20, diagonal)

	result, err := c.Compare(context.Background(), []Session{
		session("s1", "grammar", traj),
		session("s2", "grammar", traj),
		session("s3", "grammar", traj),
	})
	require.NoError(t, err)

	assert.Len(t, result.Pairs, 3)
	for _, key := range []string{"s1_vs_s2", "s1_vs_s3", "s2_vs_s3"} {
		assert.Contains(t, result.Pairs, key)
	}
}

func TestCompareReportsOversizedSkips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxStrokePoints = 30
	c := NewComparator(cfg, zap.NewNop())

	result, err := c.Compare(context.Background(), []Session{
		session("s1", "grammar", curve(100, diagonal), curve(20, diagonal)),
		session("s2", "grammar", curve(20, diagonal), curve(20, diagonal)),
	})
	require.NoError(t, err)

	scores := result.Pairs["s1_vs_s2"]
	assert.NotContains(t, scores, 0, "the oversized question must carry no score")
	assert.Equal(t, 100, scores[1], "later questions still compare")

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "s1_vs_s2", result.Skipped[0].Pair)
	assert.Equal(t, 0, result.Skipped[0].Question)
	assert.Equal(t, SkipTooLarge, result.Skipped[0].Code)
	assert.Contains(t, result.Skipped[0].Reason, "input too large")
}

func TestCompareReportsNonMonotonicSkips(t *testing.T) {
	c := NewComparator(DefaultConfig(), zap.NewNop())
	bad := curve(20, diagonal)
	bad[5].T = bad[4].T - 1

	result, err := c.Compare(context.Background(), []Session{
		session("s1", "grammar", bad),
		session("s2", "grammar", curve(20, diagonal)),
	})
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, SkipNonMonotonic, result.Skipped[0].Code)
	assert.Contains(t, result.Skipped[0].Reason, "timestamps decrease")
	assert.Empty(t, result.Pairs["s1_vs_s2"])
}

func TestCompareCanceledContext(t *testing.T) {
	c := NewComparator(DefaultConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	traj := curve(20, diagonal)
	result, err := c.Compare(ctx, []Session{
		session("s1", "grammar", traj),
		session("s2", "grammar", traj),
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestCompareDeadline(t *testing.T) {
	c := NewComparator(DefaultConfig(), zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	traj := curve(20, diagonal)
	_, err := c.Compare(ctx, []Session{
		session("s1", "grammar", traj),
		session("s2", "grammar", traj),
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompareNoSessions(t *testing.T) {
	c := NewComparator(DefaultConfig(), zap.NewNop())

	result, err := c.Compare(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, result.Pairs)
	assert.Empty(t, result.Pairs)
}
