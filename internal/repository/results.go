package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"proctrace/internal/models"
)

// ErrDuplicateSession is returned when a session that already has completed
// results is submitted again.
var ErrDuplicateSession = errors.New("session already has saved results")

// Results reads and writes stored session rows.
type Results struct {
	db *gorm.DB
}

func NewResults(db *gorm.DB) *Results {
	return &Results{db: db}
}

// EnsurePending records that a session exists before its results arrive. The
// first proctoring event creates the row; repeats are no-ops.
func (r *Results) EnsurePending(ctx context.Context, sessionID, clientIP string, at time.Time) error {
	row := models.SessionResult{
		SessionID: sessionID,
		Status:    models.StatusPending,
		ClientIP:  clientIP,
		StartedAt: &at,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}}, DoNothing: true}).
		Create(&row).Error
}

// SaveCompleted stores a finished submission. A pending row left by the
// event stream is promoted in place; a second submission for the same
// session returns ErrDuplicateSession.
func (r *Results) SaveCompleted(ctx context.Context, row *models.SessionResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SessionResult
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", row.SessionID).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row.Status = models.StatusCompleted
			return tx.Create(row).Error
		case err != nil:
			return err
		}

		if existing.Status == models.StatusCompleted {
			return ErrDuplicateSession
		}

		row.ID = existing.ID
		row.Status = models.StatusCompleted
		row.CreatedAt = existing.CreatedAt
		if row.StartedAt == nil {
			row.StartedAt = existing.StartedAt
		}
		if row.ClientIP == "" {
			row.ClientIP = existing.ClientIP
		}
		return tx.Save(row).Error
	})
}

// GetBySession returns one stored session by its client-assigned id.
func (r *Results) GetBySession(ctx context.Context, sessionID string) (*models.SessionResult, error) {
	var row models.SessionResult
	err := r.db.WithContext(ctx).First(&row, "session_id = ?", sessionID).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// IntegrityLimits carries the thresholds the anomalies preset filters on.
type IntegrityLimits struct {
	FocusLoss     int
	BlurTimeSec   float64
	PrintAttempts int
}

// ListFilter narrows the results listing. A non-nil Flagged keeps only
// sessions that tripped at least one integrity limit.
type ListFilter struct {
	TestType string
	Status   string
	Since    time.Time
	Flagged  *IntegrityLimits
	Limit    int
	Offset   int
}

func (r *Results) listQuery(ctx context.Context, f ListFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.SessionResult{})
	if f.TestType != "" {
		q = q.Where("test_type = ?", f.TestType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	if f.Flagged != nil {
		q = q.Where("total_focus_loss > ? OR total_blur_time > ? OR print_attempts > ?",
			f.Flagged.FocusLoss, f.Flagged.BlurTimeSec, f.Flagged.PrintAttempts)
	}
	return q
}

// List returns stored sessions matching the filter, newest first, plus the
// total match count for pagination.
func (r *Results) List(ctx context.Context, f ListFilter) ([]models.SessionResult, int64, error) {
	var total int64
	if err := r.listQuery(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.listQuery(ctx, f).Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []models.SessionResult
	err := q.Find(&rows).Error
	return rows, total, err
}

// ListForAnalysis returns completed sessions that still carry their raw
// behavioral payload, newest first, capped at limit.
func (r *Results) ListForAnalysis(ctx context.Context, testType string, limit int) ([]models.SessionResult, error) {
	q := r.db.WithContext(ctx).
		Where("status = ?", models.StatusCompleted).
		Where("behavioral IS NOT NULL")
	if testType != "" {
		q = q.Where("test_type = ?", testType)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []models.SessionResult
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// ListFingerprinted returns completed sessions that reported a device
// fingerprint hash, for identity-conflict grouping.
func (r *Results) ListFingerprinted(ctx context.Context, limit int) ([]models.SessionResult, error) {
	q := r.db.WithContext(ctx).
		Where("status = ?", models.StatusCompleted).
		Where("fingerprint_hash <> ''")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []models.SessionResult
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// ListByFingerprint returns every completed session that reported the given
// device fingerprint hash.
func (r *Results) ListByFingerprint(ctx context.Context, hash string) ([]models.SessionResult, error) {
	var rows []models.SessionResult
	err := r.db.WithContext(ctx).
		Where("status = ? AND fingerprint_hash = ?", models.StatusCompleted, hash).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListAbandoned returns sessions that produced proctoring events but never
// submitted results and have been idle since the cutoff.
func (r *Results) ListAbandoned(ctx context.Context, idleSince time.Time) ([]models.SessionResult, error) {
	var rows []models.SessionResult
	err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", models.StatusPending, idleSince).
		Order("started_at DESC").
		Find(&rows).Error
	return rows, err
}

// DeletePendingBefore retires pending rows whose sessions went idle before
// the cutoff. Their raw events stay until the event TTL removes them.
func (r *Results) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.StatusPending, cutoff).
		Delete(&models.SessionResult{})
	return res.RowsAffected, res.Error
}

// StripBehavioralBefore clears raw behavioral payloads from sessions created
// before the cutoff. The scored results stay; only replayable telemetry is
// removed.
func (r *Results) StripBehavioralBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.SessionResult{}).
		Where("created_at < ? AND behavioral IS NOT NULL", cutoff).
		Update("behavioral", nil)
	return res.RowsAffected, res.Error
}
