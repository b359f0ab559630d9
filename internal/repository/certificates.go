package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"proctrace/internal/models"
)

// Certificates issues numbered documents and answers public verification.
type Certificates struct {
	db *gorm.DB
}

func NewCertificates(db *gorm.DB) *Certificates {
	return &Certificates{db: db}
}

// Issue stamps a certificate for a passing session, drawing the next number
// from the per-month counter. The counter row is locked FOR UPDATE so
// concurrent issues never share a number. Re-issuing for a session that
// already holds a certificate returns the existing one.
func (c *Certificates) Issue(ctx context.Context, result *models.SessionResult, now time.Time) (*models.Certificate, error) {
	var cert *models.Certificate
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Certificate
		err := tx.Where("session_id = ?", result.SessionID).First(&existing).Error
		if err == nil {
			cert = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		year, month := now.Year(), int(now.Month())
		var counter models.DocumentCounter
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("year = ? AND month = ?", year, month).
			First(&counter).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			counter = models.DocumentCounter{Year: year, Month: month}
			if err := tx.Create(&counter).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		counter.LastValue++
		if err := tx.Save(&counter).Error; err != nil {
			return err
		}

		cert = &models.Certificate{
			DocumentNumber: models.FormatDocumentNumber(year, month, counter.LastValue),
			SessionID:      result.SessionID,
			HolderName:     result.HolderName(),
			Position:       result.Position,
			TestType:       result.TestType,
			Score:          result.Score,
			IssuedAt:       now,
		}
		return tx.Create(cert).Error
	})
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// Search lists issued certificates, newest first. A non-empty query narrows
// by document number or holder name, case-insensitively.
func (c *Certificates) Search(ctx context.Context, query string, limit int) ([]models.Certificate, error) {
	q := c.db.WithContext(ctx).Model(&models.Certificate{}).Order("issued_at DESC")
	if query != "" {
		pattern := "%" + query + "%"
		q = q.Where("document_number ILIKE ? OR holder_name ILIKE ?", pattern, pattern)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []models.Certificate
	err := q.Find(&rows).Error
	return rows, err
}

// GetByNumber looks a certificate up by its public document number.
func (c *Certificates) GetByNumber(ctx context.Context, number string) (*models.Certificate, error) {
	var cert models.Certificate
	err := c.db.WithContext(ctx).First(&cert, "document_number = ?", number).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// GetBySession returns the certificate issued for a session, if any.
func (c *Certificates) GetBySession(ctx context.Context, sessionID string) (*models.Certificate, error) {
	var cert models.Certificate
	err := c.db.WithContext(ctx).First(&cert, "session_id = ?", sessionID).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}
