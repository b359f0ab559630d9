package analysis

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Comparison is the output of one pairwise run. Pairs maps the canonical
// pair key to per-question scores; a pair that was eligible but had no
// comparable questions keeps an empty map, which readers must treat as "no
// signal", never as zeros. Skipped lists question comparisons that were
// dropped for capacity or validation reasons.
type Comparison struct {
	Pairs   map[string]map[int]int `json:"pairs"`
	Skipped []SkippedComparison    `json:"skipped,omitempty"`
}

// SkippedComparison records one omitted question comparison and why. Code
// is the stable short form of the reason, suitable as a metric label;
// Reason keeps the full error text.
type SkippedComparison struct {
	Pair     string `json:"pair"`
	Question int    `json:"question"`
	Code     string `json:"code"`
	Reason   string `json:"reason"`
}

// Skip codes. The set is closed so metric cardinality stays bounded.
const (
	SkipTooLarge     = "input_too_large"
	SkipNonMonotonic = "non_monotonic"
	SkipOther        = "other"
)

func skipCode(err error) string {
	switch {
	case errors.Is(err, ErrStrokeTooLong):
		return SkipTooLarge
	case errors.Is(err, ErrNonMonotonic):
		return SkipNonMonotonic
	default:
		return SkipOther
	}
}

// PairKey canonicalizes an unordered session pair into "a_vs_b" with the
// ids in lexicographic order, so (A,B) and (B,A) share one map entry.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_vs_" + b
}

// SplitPairKey recovers the two session ids from a canonical pair key,
// splitting on the first separator occurrence.
func SplitPairKey(key string) (a, b string, ok bool) {
	a, b, ok = strings.Cut(key, "_vs_")
	if !ok || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}

// Comparator runs the similarity scorer across every eligible session pair.
type Comparator struct {
	cfg    Config
	scorer *Scorer
	log    *zap.Logger
}

func NewComparator(cfg Config, log *zap.Logger) *Comparator {
	return &Comparator{cfg: cfg, scorer: NewScorer(cfg), log: log}
}

// Compare scores every unordered pair of distinct sessions that share a
// test type, question by question. Sessions on different tests have
// unrelated question banks, so those pairs are skipped outright rather than
// scored 0. Pairs fan out over a bounded worker pool; workers hand partial
// results back over a channel and a single loop merges them, so no two
// goroutines ever touch the same map. The caller bounds the whole run with
// ctx; on cancellation the partial result is discarded and ctx.Err()
// returned.
func (c *Comparator) Compare(ctx context.Context, sessions []Session) (*Comparison, error) {
	pairs := eligiblePairs(sessions)

	result := &Comparison{Pairs: make(map[string]map[int]int, len(pairs))}
	if len(pairs) == 0 {
		return result, nil
	}

	workers := c.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(pairs) {
		workers = len(pairs)
	}

	jobs := make(chan pairJob)
	partials := make(chan pairResult, len(pairs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				partials <- c.comparePair(ctx, job.a, job.b)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, job := range pairs {
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(partials)
	}()

	for partial := range partials {
		result.Pairs[partial.key] = partial.scores
		result.Skipped = append(result.Skipped, partial.skipped...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type pairJob struct {
	a, b *Session
}

type pairResult struct {
	key     string
	scores  map[int]int
	skipped []SkippedComparison
}

func (c *Comparator) comparePair(ctx context.Context, a, b *Session) pairResult {
	pr := pairResult{key: PairKey(a.SessionID, b.SessionID), scores: make(map[int]int)}

	n := len(a.PerQuestion)
	if len(b.PerQuestion) < n {
		n = len(b.PerQuestion)
	}

	for q := 0; q < n; q++ {
		if ctx.Err() != nil {
			return pr
		}

		movesA := a.PerQuestion[q].MouseMovements
		movesB := b.PerQuestion[q].MouseMovements
		if len(movesA) == 0 || len(movesB) == 0 {
			// Absent capture on either side is no signal, not a zero.
			continue
		}

		score, err := c.scorer.Score(movesA, movesB)
		if err != nil {
			pr.skipped = append(pr.skipped, SkippedComparison{
				Pair:     pr.key,
				Question: q,
				Code:     skipCode(err),
				Reason:   err.Error(),
			})
			c.log.Warn("Question comparison skipped",
				zap.String("pair", pr.key),
				zap.Int("question", q),
				zap.Error(err),
			)
			continue
		}
		pr.scores[q] = score
	}

	return pr
}

func eligiblePairs(sessions []Session) []pairJob {
	var pairs []pairJob
	for i := range sessions {
		for j := i + 1; j < len(sessions); j++ {
			a, b := &sessions[i], &sessions[j]
			if a.SessionID == b.SessionID {
				continue
			}
			if a.TestType != b.TestType {
				continue
			}
			pairs = append(pairs, pairJob{a: a, b: b})
		}
	}
	return pairs
}
