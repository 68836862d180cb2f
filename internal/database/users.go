package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tiermaster/backend/internal/models"
)

// UserStore persists accounts keyed by email.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// ByEmail loads the user registered under email.
func (s *UserStore) ByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if err != nil {
		if isNotFound(err) {
			return models.User{}, models.ErrNotFound
		}
		return models.User{}, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

// Upsert registers the user on first login and refreshes their profile on
// later ones. The subscription tier of an existing account is kept.
func (s *UserStore) Upsert(ctx context.Context, u models.User) (models.User, error) {
	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "profile_image", "provider_id", "provider_type", "updated_at"}),
	}).Create(&u).Error
	if err != nil {
		return models.User{}, fmt.Errorf("saving user: %w", err)
	}
	return s.ByEmail(ctx, u.Email)
}

// SetTier changes a user's subscription tier.
func (s *UserStore) SetTier(ctx context.Context, email string, t models.SubscriptionTier) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Update("tier", t)
	if res.Error != nil {
		return fmt.Errorf("updating tier: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
