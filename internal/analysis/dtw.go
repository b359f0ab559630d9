package analysis

import "math"

// dtwDistance computes the Dynamic Time Warping alignment cost between two
// normalized point sequences using the full (n+1)x(m+1) accumulated-cost
// matrix. D[0][0] = 0 seeds the recurrence; the rest of row 0 and column 0
// stay at +Inf so every warping path is forced to start at the corner.
// Getting this border wrong does not crash, it silently skews distances,
// which is why the initialization is spelled out rather than folded into
// the loop.
func dtwDistance(a, b [][2]float64) float64 {
	n := len(a)
	m := len(b)

	d := make([][]float64, n+1)
	for i := range d {
		d[i] = make([]float64, m+1)
		for j := range d[i] {
			d[i][j] = math.Inf(1)
		}
	}
	d[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			cost := euclidean(a[i-1], b[j-1])
			best := d[i-1][j-1]
			if d[i-1][j] < best {
				best = d[i-1][j]
			}
			if d[i][j-1] < best {
				best = d[i][j-1]
			}
			d[i][j] = cost + best
		}
	}

	return d[n][m]
}

func euclidean(p, q [2]float64) float64 {
	dx := p[0] - q[0]
	dy := p[1] - q[1]
	return math.Sqrt(dx*dx + dy*dy)
}
