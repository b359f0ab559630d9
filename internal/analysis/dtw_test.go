package analysis

import (
	"math"
	"testing"

	"proctrace/internal/models"
)

func TestDTWDistanceIdenticalSequencesIsZero(t *testing.T) {
	seq := [][2]float64{{0, 0}, {10, 5}, {20, 20}, {35, 40}}
	if got := dtwDistance(seq, seq); got != 0 {
		t.Fatalf("dtwDistance(seq, seq) = %v, want 0", got)
	}
}

func TestDTWDistanceSinglePoints(t *testing.T) {
	a := [][2]float64{{0, 0}}
	b := [][2]float64{{3, 4}}
	if got := dtwDistance(a, b); got != 5 {
		t.Fatalf("dtwDistance = %v, want 5", got)
	}
}

func TestDTWDistanceRepeatedPointsAbsorbFree(t *testing.T) {
	// b repeats its first point; warping aligns both repeats with a's
	// first point at zero cost, so identical shapes stay at distance 0.
	a := [][2]float64{{0, 0}, {1, 0}}
	b := [][2]float64{{0, 0}, {0, 0}, {1, 0}}
	if got := dtwDistance(a, b); got != 0 {
		t.Fatalf("dtwDistance = %v, want 0", got)
	}
}

func TestDTWDistanceKnownAlignment(t *testing.T) {
	// Both paths start together; the cheapest alignment pairs the end
	// points diagonally and pays exactly their unit offset.
	a := [][2]float64{{0, 0}, {1, 0}}
	b := [][2]float64{{0, 0}, {2, 0}}
	if got := dtwDistance(a, b); got != 1 {
		t.Fatalf("dtwDistance = %v, want 1", got)
	}
}

func TestDTWDistanceSymmetric(t *testing.T) {
	a := [][2]float64{{0, 0}, {5, 1}, {9, 7}, {14, 3}, {20, 20}}
	b := [][2]float64{{1, 1}, {4, 4}, {12, 2}}
	if ab, ba := dtwDistance(a, b), dtwDistance(b, a); ab != ba {
		t.Fatalf("dtwDistance not symmetric: %v vs %v", ab, ba)
	}
}

func TestDTWDistanceUnevenLengthsStayFinite(t *testing.T) {
	a := make([][2]float64, 40)
	b := make([][2]float64, 7)
	for i := range a {
		a[i] = [2]float64{float64(i), float64(i % 3)}
	}
	for i := range b {
		b[i] = [2]float64{float64(i * 5), 1}
	}
	got := dtwDistance(a, b)
	if math.IsInf(got, 0) || math.IsNaN(got) || got < 0 {
		t.Fatalf("dtwDistance = %v, want finite non-negative", got)
	}
}

func TestNormalizePointsCanonicalBox(t *testing.T) {
	stroke := []models.TrajectoryPoint{
		{X: 100, Y: 200, T: 0},
		{X: 150, Y: 250, T: 50},
		{X: 200, Y: 400, T: 100},
	}
	norm := normalizePoints(stroke)

	if norm[0] != [2]float64{0, 0} {
		t.Fatalf("min corner = %v, want (0,0)", norm[0])
	}
	if norm[2] != [2]float64{1000, 1000} {
		t.Fatalf("max corner = %v, want (1000,1000)", norm[2])
	}
	if norm[1][0] != 500 || norm[1][1] != 250 {
		t.Fatalf("midpoint = %v, want (500,250)", norm[1])
	}
}

func TestNormalizePointsDegenerateAxisCollapsesToZero(t *testing.T) {
	// A perfectly horizontal stroke has zero height; the y axis divides by
	// the guard value instead of blowing up.
	stroke := []models.TrajectoryPoint{
		{X: 0, Y: 42, T: 0},
		{X: 500, Y: 42, T: 50},
		{X: 1000, Y: 42, T: 100},
	}
	norm := normalizePoints(stroke)
	for i, p := range norm {
		if p[1] != 0 {
			t.Fatalf("point %d y = %v, want 0 on a flat stroke", i, p[1])
		}
	}
	if norm[2][0] != 1000 {
		t.Fatalf("x still rescales: got %v, want 1000", norm[2][0])
	}
}
