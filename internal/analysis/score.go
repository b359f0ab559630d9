package analysis

import (
	"errors"
	"fmt"
	"math"

	"proctrace/internal/models"
)

var (
	// ErrNonMonotonic marks a trajectory whose timestamps go backwards.
	// Ingestion validates this too; scoring re-checks so a corrupt row can
	// never silently produce a wrong distance.
	ErrNonMonotonic = errors.New("trajectory timestamps decrease")

	// ErrStrokeTooLong marks a stroke above the configured point cap. DTW
	// is quadratic, so oversized inputs are skipped rather than scored.
	ErrStrokeTooLong = errors.New("comparison skipped: input too large")
)

// Diagnostic weighting for the verbose breakdown. The headline score is
// shape-only; scale and position context helps a reviewer judge whether two
// matching shapes were also drawn at the same size and place on screen.
const (
	shapeWeight    = 0.60
	scaleWeight    = 0.25
	positionWeight = 0.15
	scaleBasis     = 500.0  // px difference treated as totally dissimilar
	positionBasis  = 1000.0 // px center offset treated as totally dissimilar
)

// Scorer turns two raw per-question trajectories into a similarity percent.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score runs the full pipeline on two raw trajectories: stroke extraction,
// normalization, DTW, and the contrast boost. The result is an integer in
// [0, 100]. A stroke shorter than MinStrokePoints makes the pair
// non-comparable and scores exactly 0; sparse capture must read as "no
// signal", not as a weak match.
func (s *Scorer) Score(rawA, rawB []models.TrajectoryPoint) (int, error) {
	strokeA, err := s.stroke(rawA)
	if err != nil {
		return 0, err
	}
	strokeB, err := s.stroke(rawB)
	if err != nil {
		return 0, err
	}

	if len(strokeA) < s.cfg.MinStrokePoints || len(strokeB) < s.cfg.MinStrokePoints {
		return 0, nil
	}

	shape := shapeSimilarity(normalizePoints(strokeA), normalizePoints(strokeB))
	return s.finalize(shape), nil
}

// Detail computes the verbose three-factor breakdown: the shape similarity
// the headline score is built from, plus how closely the raw strokes match
// in size and screen position. Combined weights the three and applies the
// same boost as Score.
func (s *Scorer) Detail(rawA, rawB []models.TrajectoryPoint) (*Breakdown, error) {
	strokeA, err := s.stroke(rawA)
	if err != nil {
		return nil, err
	}
	strokeB, err := s.stroke(rawB)
	if err != nil {
		return nil, err
	}

	if len(strokeA) < s.cfg.MinStrokePoints || len(strokeB) < s.cfg.MinStrokePoints {
		return &Breakdown{}, nil
	}

	shape := shapeSimilarity(normalizePoints(strokeA), normalizePoints(strokeB))

	boxA := boundsOf(strokeA)
	boxB := boundsOf(strokeB)

	scaleDiff := (math.Abs(boxA.width()-boxB.width()) + math.Abs(boxA.height()-boxB.height())) / 2
	scale := math.Max(0, (1-scaleDiff/scaleBasis)*100)

	posDiff := math.Sqrt(math.Pow(boxA.centerX()-boxB.centerX(), 2) + math.Pow(boxA.centerY()-boxB.centerY(), 2))
	position := math.Max(0, (1-posDiff/positionBasis)*100)

	combined := shape*shapeWeight + scale*scaleWeight + position*positionWeight

	return &Breakdown{
		Shape:    roundTenth(shape),
		Scale:    roundTenth(scale),
		Position: roundTenth(position),
		Combined: s.finalize(combined),
	}, nil
}

// Breakdown is the verbose per-pair diagnostic returned alongside scores
// when the caller asks for detail.
type Breakdown struct {
	Shape    float64 `json:"shape"`
	Scale    float64 `json:"scale"`
	Position float64 `json:"position"`
	Combined int     `json:"combined"`
}

// stroke validates and extracts one side of a comparison.
func (s *Scorer) stroke(raw []models.TrajectoryPoint) ([]models.TrajectoryPoint, error) {
	if err := ValidateTrajectory(raw); err != nil {
		return nil, err
	}
	stroke := ExtractStroke(raw, s.cfg.PauseThreshold)
	if s.cfg.MaxStrokePoints > 0 && len(stroke) > s.cfg.MaxStrokePoints {
		return nil, fmt.Errorf("%w: %d points over the %d limit", ErrStrokeTooLong, len(stroke), s.cfg.MaxStrokePoints)
	}
	return stroke, nil
}

// ValidateTrajectory rejects trajectories whose timestamps go backwards.
// Ingestion calls this at the boundary; the scorer re-checks before use.
func ValidateTrajectory(traj []models.TrajectoryPoint) error {
	for i := 1; i < len(traj); i++ {
		if traj[i].T < traj[i-1].T {
			return fmt.Errorf("%w: point %d", ErrNonMonotonic, i)
		}
	}
	return nil
}

// shapeSimilarity converts a DTW distance into a pre-boost percentage. The
// worst-case denominator pairs every point of the longer sequence with the
// opposite corner of the canonical square.
func shapeSimilarity(normA, normB [][2]float64) float64 {
	distance := dtwDistance(normA, normB)

	longer := len(normA)
	if len(normB) > longer {
		longer = len(normB)
	}
	maxPossible := canonicalSide * math.Sqrt2 * float64(longer)

	normalizedDistance := 1.0
	if maxPossible > 0 {
		normalizedDistance = distance / maxPossible
	}

	return math.Max(0, (1-normalizedDistance)*100)
}

// finalize applies the contrast boost, clamps, and rounds to an integer.
// The boost stretches everything above the threshold so that coincidental
// similarity (at or below it) and suspicious similarity separate visibly.
func (s *Scorer) finalize(sim float64) int {
	if sim > s.cfg.BoostThreshold {
		sim = s.cfg.BoostThreshold + (sim-s.cfg.BoostThreshold)*s.cfg.BoostFactor
	}
	if sim > 100 {
		sim = 100
	}
	if sim < 0 {
		sim = 0
	}
	return int(math.Round(sim))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
