package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"proctrace/internal/models"
)

// APIKeys manages machine-client credentials.
type APIKeys struct {
	db *gorm.DB
}

func NewAPIKeys(db *gorm.DB) *APIKeys {
	return &APIKeys{db: db}
}

func (k *APIKeys) Create(ctx context.Context, key *models.APIKey) error {
	return k.db.WithContext(ctx).Create(key).Error
}

// GetActive returns the key row if the key exists and is active.
func (k *APIKeys) GetActive(ctx context.Context, key string) (*models.APIKey, error) {
	var row models.APIKey
	err := k.db.WithContext(ctx).First(&row, "key = ? AND is_active = true", key).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (k *APIKeys) List(ctx context.Context) ([]models.APIKey, error) {
	var rows []models.APIKey
	err := k.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// RevokeByName deactivates every key with the given name. Returns the
// number of keys revoked.
func (k *APIKeys) RevokeByName(ctx context.Context, name string) (int64, error) {
	res := k.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("name = ? AND is_active = true", name).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// BumpUsage counts one authenticated request against the key. Fire and
// forget; a failed bump never blocks the request.
func (k *APIKeys) BumpUsage(ctx context.Context, id uint, at time.Time) error {
	return k.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": at,
		}).Error
}
