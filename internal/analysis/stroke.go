package analysis

import "proctrace/internal/models"

// ExtractStroke returns the leading contiguous stroke of a trajectory: all
// points before the first inter-point gap longer than pauseThreshold
// seconds. Trailing idle wandering after the pause carries no intent and
// only dilutes the DTW alignment, so it is dropped here. Trajectories of
// zero or one point come back unchanged.
func ExtractStroke(traj []models.TrajectoryPoint, pauseThreshold float64) []models.TrajectoryPoint {
	if len(traj) <= 1 {
		return traj
	}

	for i := 1; i < len(traj); i++ {
		delta := float64(traj[i].T-traj[i-1].T) / 1000.0 // ms to seconds
		if delta > pauseThreshold {
			return traj[:i]
		}
	}

	return traj
}
