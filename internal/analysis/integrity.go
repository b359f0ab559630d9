package analysis

// Reason strings attached to sessions that tripped an integrity limit.
const (
	FlagFocusLoss     = "focus_loss"
	FlagBlurTime      = "blur_time"
	FlagPrintAttempts = "print_attempts"
)

// IntegrityThresholds are the per-session limits a clean sitting stays
// under.
type IntegrityThresholds struct {
	FocusLossLimit   int
	BlurTimeLimitSec float64
	PrintLimit       int
}

// IntegrityFlags returns the reasons a session's whole-test counters look
// anomalous. An empty slice means the session stayed within every limit.
func IntegrityFlags(focusLoss int, blurTimeSec float64, printAttempts int, t IntegrityThresholds) []string {
	var flags []string
	if focusLoss > t.FocusLossLimit {
		flags = append(flags, FlagFocusLoss)
	}
	if blurTimeSec > t.BlurTimeLimitSec {
		flags = append(flags, FlagBlurTime)
	}
	if printAttempts > t.PrintLimit {
		flags = append(flags, FlagPrintAttempts)
	}
	return flags
}
