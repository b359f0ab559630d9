package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Stats answers the dashboard aggregates with single round trips.
type Stats struct {
	db *gorm.DB
}

func NewStats(db *gorm.DB) *Stats {
	return &Stats{db: db}
}

// TestTypeStat is the per-assessment rollup shown on the dashboard.
type TestTypeStat struct {
	TestType     string  `json:"testType"`
	Completed    int64   `json:"completed"`
	AverageScore float64 `json:"averageScore"`
	PassRate     float64 `json:"passRate"`
}

// ByTestType aggregates completed sessions per assessment.
func (s *Stats) ByTestType(ctx context.Context) ([]TestTypeStat, error) {
	var rows []TestTypeStat
	query := `
		SELECT
			test_type,
			COUNT(*) AS completed,
			COALESCE(AVG(score), 0) AS average_score,
			COALESCE(AVG(CASE WHEN passed THEN 100.0 ELSE 0.0 END), 0) AS pass_rate
		FROM session_results
		WHERE status = 'completed'
		GROUP BY test_type
		ORDER BY test_type`
	err := s.db.WithContext(ctx).Raw(query).Scan(&rows).Error
	return rows, err
}

// VolumeStat is one day of completion volume.
type VolumeStat struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// CompletionsByDay returns daily completion counts for the trailing window.
func (s *Stats) CompletionsByDay(ctx context.Context, days int) ([]VolumeStat, error) {
	var rows []VolumeStat
	query := `
		SELECT date_trunc('day', completed_at) AS day, COUNT(*) AS count
		FROM session_results
		WHERE status = 'completed' AND completed_at >= NOW() - (? * INTERVAL '1 day')
		GROUP BY 1
		ORDER BY 1`
	err := s.db.WithContext(ctx).Raw(query, days).Scan(&rows).Error
	return rows, err
}

// WindowStat aggregates completed sessions inside one time window. The
// dashboard renders two of these side by side to show week-over-week change.
type WindowStat struct {
	Completed    int64   `json:"completed"`
	AverageScore float64 `json:"averageScore"`
	PassRate     float64 `json:"passRate"`
	Flagged      int64   `json:"flagged"`
}

// Window aggregates completions between since (inclusive) and until
// (exclusive). Integrity limits come from the caller's config snapshot.
func (s *Stats) Window(ctx context.Context, since, until time.Time, focusLimit int, blurLimitSec float64, printLimit int) (*WindowStat, error) {
	var row WindowStat
	query := `
		SELECT
			COUNT(*) AS completed,
			COALESCE(AVG(score), 0) AS average_score,
			COALESCE(AVG(CASE WHEN passed THEN 100.0 ELSE 0.0 END), 0) AS pass_rate,
			COUNT(*) FILTER (WHERE total_focus_loss > ? OR total_blur_time > ? OR print_attempts > ?) AS flagged
		FROM session_results
		WHERE status = 'completed' AND completed_at >= ? AND completed_at < ?`
	err := s.db.WithContext(ctx).Raw(query, focusLimit, blurLimitSec, printLimit, since, until).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Snapshot is the headline dashboard block.
type Snapshot struct {
	TotalSessions    int64 `json:"totalSessions"`
	CompletedToday   int64 `json:"completedToday"`
	PendingSessions  int64 `json:"pendingSessions"`
	EventsToday      int64 `json:"eventsToday"`
	FlaggedIntegrity int64 `json:"flaggedIntegrity"`
}

// TakeSnapshot computes the headline numbers. Integrity limits come from
// the caller so the query always reflects the current configuration.
func (s *Stats) TakeSnapshot(ctx context.Context, focusLimit int, blurLimitSec float64, printLimit int) (*Snapshot, error) {
	var snap Snapshot
	query := `
		SELECT
			(SELECT COUNT(*) FROM session_results) AS total_sessions,
			(SELECT COUNT(*) FROM session_results
				WHERE status = 'completed' AND completed_at >= date_trunc('day', NOW())) AS completed_today,
			(SELECT COUNT(*) FROM session_results WHERE status = 'pending') AS pending_sessions,
			(SELECT COUNT(*) FROM proctoring_events WHERE created_at >= date_trunc('day', NOW())) AS events_today,
			(SELECT COUNT(*) FROM session_results
				WHERE status = 'completed'
				AND (total_focus_loss > ? OR total_blur_time > ? OR print_attempts > ?)) AS flagged_integrity`
	err := s.db.WithContext(ctx).Raw(query, focusLimit, blurLimitSec, printLimit).Scan(&snap).Error
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
