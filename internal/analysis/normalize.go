package analysis

import "proctrace/internal/models"

// canonicalSide is the side length of the square every stroke is rescaled
// into before shape comparison. Comparing inside a fixed box makes the DTW
// distance insensitive to where on the screen the stroke happened and how
// large it was drawn.
const canonicalSide = 1000.0

type bounds struct {
	minX, maxX float64
	minY, maxY float64
}

func (b bounds) width() float64  { return b.maxX - b.minX }
func (b bounds) height() float64 { return b.maxY - b.minY }

func (b bounds) centerX() float64 { return (b.minX + b.maxX) / 2 }
func (b bounds) centerY() float64 { return (b.minY + b.maxY) / 2 }

func boundsOf(points []models.TrajectoryPoint) bounds {
	if len(points) == 0 {
		return bounds{}
	}
	b := bounds{minX: points[0].X, maxX: points[0].X, minY: points[0].Y, maxY: points[0].Y}
	for _, p := range points[1:] {
		if p.X < b.minX {
			b.minX = p.X
		}
		if p.X > b.maxX {
			b.maxX = p.X
		}
		if p.Y < b.minY {
			b.minY = p.Y
		}
		if p.Y > b.maxY {
			b.maxY = p.Y
		}
	}
	return b
}

// normalizePoints rescales a stroke into the canonical square and drops
// timestamps; only shape matters from here on. A degenerate axis (all
// points on one line) divides by 1 instead, collapsing that axis to 0.
func normalizePoints(stroke []models.TrajectoryPoint) [][2]float64 {
	b := boundsOf(stroke)

	spanX := b.width()
	if spanX < 1 {
		spanX = 1
	}
	spanY := b.height()
	if spanY < 1 {
		spanY = 1
	}

	out := make([][2]float64, len(stroke))
	for i, p := range stroke {
		out[i] = [2]float64{
			canonicalSide * (p.X - b.minX) / spanX,
			canonicalSide * (p.Y - b.minY) / spanY,
		}
	}
	return out
}
