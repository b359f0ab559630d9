package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"proctrace/internal/models"
)

// Events stores raw proctoring events and answers the rollup queries the
// review endpoints need.
type Events struct {
	db *gorm.DB
}

func NewEvents(db *gorm.DB) *Events {
	return &Events{db: db}
}

// Insert appends one event to the log.
func (e *Events) Insert(ctx context.Context, ev *models.ProctoringEvent) error {
	return e.db.WithContext(ctx).Create(ev).Error
}

// ListForSession returns the raw event log for one session, oldest first.
func (e *Events) ListForSession(ctx context.Context, sessionID string, limit int) ([]models.ProctoringEvent, error) {
	q := e.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []models.ProctoringEvent
	err := q.Find(&rows).Error
	return rows, err
}

// CountByType rolls the session's event log up into per-type counts.
func (e *Events) CountByType(ctx context.Context, sessionID string) (map[string]int64, error) {
	type typeCount struct {
		EventType string
		Count     int64
	}

	var rows []typeCount
	err := e.db.WithContext(ctx).Model(&models.ProctoringEvent{}).
		Select("event_type, COUNT(*) AS count").
		Where("session_id = ?", sessionID).
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.EventType] = row.Count
	}
	return counts, nil
}

// StudyActivityRow is the per-session study rollup pulled from the event
// log. Field shapes follow the event payloads: module_view_time carries
// {"seconds": n}, scroll milestones carry {"depth": n}.
type StudyActivityRow struct {
	SessionID      string  `json:"sessionId"`
	ViewSeconds    float64 `json:"viewSeconds"`
	MaxScrollDepth int     `json:"maxScrollDepth"`
	SelfChecks     int     `json:"selfChecks"`
}

// studyWindow is how far back study-material activity is attributed to a
// test sitting.
const studyWindow = 24 * time.Hour

// StudyActivity reconstructs what the person behind a test session did in
// the study materials. Study events arrive under their own session ids, so
// the test row is matched to them through its persistent id (via the session
// rows those events created) or its client ip, windowed to the 24 h before
// the test started; the test session's own events count too.
func (e *Events) StudyActivity(ctx context.Context, test *models.SessionResult) (*StudyActivityRow, error) {
	row := StudyActivityRow{SessionID: test.SessionID}
	from, until := studyWindowFor(test)
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN e.event_type = ? THEN (e.details->>'seconds')::float END), 0) AS view_seconds,
			COALESCE(MAX(CASE WHEN e.event_type = ? THEN (e.details->>'depth')::int END), 0) AS max_scroll_depth,
			COUNT(*) FILTER (WHERE e.event_type = ?) AS self_checks
		FROM proctoring_events e
		LEFT JOIN session_results s ON s.session_id = e.session_id
		WHERE e.created_at BETWEEN ? AND ?
		  AND (e.session_id = ?
		       OR (? <> '' AND s.persistent_id = ?)
		       OR (? <> '' AND e.client_ip = ?))`
	err := e.db.WithContext(ctx).Raw(query,
		models.EventModuleViewTime,
		models.EventScrollDepth,
		models.EventSelfCheck,
		from, until,
		test.SessionID,
		test.PersistentID, test.PersistentID,
		test.ClientIP, test.ClientIP,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// studyWindowFor anchors the attribution window 24 h before the test
// started and closes it at completion, so both prior study sessions and
// activity during the sitting itself are counted. Rows that never reported
// a start or completion time fall back to the row's creation time.
func studyWindowFor(test *models.SessionResult) (from, until time.Time) {
	until = test.CreatedAt
	if test.CompletedAt != nil {
		until = *test.CompletedAt
	}
	anchor := until
	if test.StartedAt != nil {
		anchor = *test.StartedAt
	}
	return anchor.Add(-studyWindow), until
}

// DeleteBefore drops raw events older than the cutoff.
func (e *Events) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := e.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ProctoringEvent{})
	return res.RowsAffected, res.Error
}
