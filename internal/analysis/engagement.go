package analysis

// StudyActivity aggregates what one person did in the study materials
// before taking a test, reconstructed from proctoring events.
type StudyActivity struct {
	ViewSeconds    float64 `json:"viewSeconds"`
	MaxScrollDepth int     `json:"maxScrollDepth"`
	SelfChecks     int     `json:"selfChecks"`
}

// EngagementScore condenses study activity into one comparable number:
// a point per full minute of module viewing, a scroll bonus (10 for
// reaching 95% depth, 5 for reaching half), and two points per answered
// self-check.
func EngagementScore(a StudyActivity) int {
	score := int(a.ViewSeconds / 60)

	switch {
	case a.MaxScrollDepth >= 95:
		score += 10
	case a.MaxScrollDepth >= 50:
		score += 5
	}

	return score + 2*a.SelfChecks
}

// BehaviorThresholds tunes the high-score/low-effort heuristic.
type BehaviorThresholds struct {
	MinScore           int
	MaxTestDurationSec float64
	MinEngagementScore int
}

// SuspiciousResult flags the pattern reviewers care about: a near-perfect
// score produced unusually fast by someone who barely touched the study
// materials. All three conditions must hold.
func SuspiciousResult(score int, durationSec float64, engagement int, t BehaviorThresholds) bool {
	return score >= t.MinScore &&
		durationSec < t.MaxTestDurationSec &&
		engagement < t.MinEngagementScore
}
