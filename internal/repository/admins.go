package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"proctrace/internal/models"
)

// Admins manages reviewer accounts.
type Admins struct {
	db *gorm.DB
}

func NewAdmins(db *gorm.DB) *Admins {
	return &Admins{db: db}
}

// Create stores a new reviewer. The caller hashes the password via
// AdminUser.SetPassword first.
func (a *Admins) Create(ctx context.Context, admin *models.AdminUser) error {
	return a.db.WithContext(ctx).Create(admin).Error
}

func (a *Admins) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := a.db.WithContext(ctx).First(&admin, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (a *Admins) GetByID(ctx context.Context, id uint) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := a.db.WithContext(ctx).First(&admin, id).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// TouchLogin stamps a successful sign-in.
func (a *Admins) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	return a.db.WithContext(ctx).Model(&models.AdminUser{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}
