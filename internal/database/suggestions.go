package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tiermaster/backend/internal/models"
)

// SuggestionStore persists item suggestions and their moderation outcome.
type SuggestionStore struct {
	db *gorm.DB
}

func NewSuggestionStore(db *gorm.DB) *SuggestionStore {
	return &SuggestionStore{db: db}
}

// CountInWindow counts suggestions made by email with from <= created_at < to.
func (s *SuggestionStore) CountInWindow(ctx context.Context, email string, from, to time.Time) (int, error) {
	var n int64
	err := countInWindow(s.db.WithContext(ctx), email, from, to, &n)
	if err != nil {
		return 0, fmt.Errorf("counting suggestions: %w", err)
	}
	return int(n), nil
}

// Create inserts sug if the submitter has fewer than limit suggestions in the
// window, returning how many they have used including this one. Concurrent
// submissions by the same user are serialised on their user row, so the limit
// holds under races.
func (s *SuggestionStore) Create(ctx context.Context, sug *models.ItemSuggestion, from, to time.Time, limit int) (int, error) {
	var used int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("email = ?", sug.UserEmail).
			Take(&owner).Error
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("locking submitter: %w", err)
		}

		var n int64
		if err := countInWindow(tx, sug.UserEmail, from, to, &n); err != nil {
			return fmt.Errorf("counting suggestions: %w", err)
		}
		if int(n) >= limit {
			return &models.QuotaExceededError{Used: int(n), Limit: limit}
		}

		sug.Status = models.SuggestionPending
		if err := tx.Omit(clause.Associations).Create(sug).Error; err != nil {
			if isForeignKeyViolation(err) {
				return models.ErrNotFound
			}
			return fmt.Errorf("inserting suggestion: %w", err)
		}
		used = int(n) + 1
		return nil
	})
	return used, err
}

// List returns every suggestion, newest first, with its category.
func (s *SuggestionStore) List(ctx context.Context) ([]models.ItemSuggestion, error) {
	var out []models.ItemSuggestion
	err := s.db.WithContext(ctx).
		Preload("Category.Group").
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}
	return out, nil
}

// Approve turns a pending suggestion into a new item with zero votes and
// links the two. Only one of several concurrent approvals can succeed; the
// rest see models.ErrAlreadyProcessed.
func (s *SuggestionStore) Approve(ctx context.Context, id uint, actor string, now time.Time) (models.ItemSuggestion, models.Item, error) {
	var sug models.ItemSuggestion
	var item models.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sug, err = lockPending(tx, id); err != nil {
			return err
		}

		item = models.Item{Name: sug.Name, CategoryID: sug.CategoryID}
		if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
			if isForeignKeyViolation(err) {
				return models.ErrNotFound
			}
			return fmt.Errorf("creating item: %w", err)
		}

		sug.Status = models.SuggestionApproved
		sug.ItemID = &item.ID
		sug.ProcessedAt = &now
		sug.ProcessedBy = &actor
		return tx.Model(&models.ItemSuggestion{ID: id}).Updates(map[string]any{
			"status":       sug.Status,
			"item_id":      item.ID,
			"processed_at": now,
			"processed_by": actor,
		}).Error
	})
	if err != nil {
		return models.ItemSuggestion{}, models.Item{}, err
	}
	return sug, item, nil
}

// Reject marks a pending suggestion rejected with the given reason.
func (s *SuggestionStore) Reject(ctx context.Context, id uint, actor, reason string, now time.Time) (models.ItemSuggestion, error) {
	var sug models.ItemSuggestion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sug, err = lockPending(tx, id); err != nil {
			return err
		}

		sug.Status = models.SuggestionRejected
		sug.ProcessedAt = &now
		sug.ProcessedBy = &actor
		sug.RejectionReason = &reason
		return tx.Model(&models.ItemSuggestion{ID: id}).Updates(map[string]any{
			"status":           sug.Status,
			"processed_at":     now,
			"processed_by":     actor,
			"rejection_reason": reason,
		}).Error
	})
	if err != nil {
		return models.ItemSuggestion{}, err
	}
	return sug, nil
}

func lockPending(tx *gorm.DB, id uint) (models.ItemSuggestion, error) {
	var sug models.ItemSuggestion
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&sug, id).Error
	if err != nil {
		if isNotFound(err) {
			return sug, models.ErrNotFound
		}
		return sug, fmt.Errorf("loading suggestion %d: %w", id, err)
	}
	if sug.Status != models.SuggestionPending {
		return sug, models.ErrAlreadyProcessed
	}
	return sug, nil
}

func countInWindow(db *gorm.DB, email string, from, to time.Time, n *int64) error {
	return db.Model(&models.ItemSuggestion{}).
		Where("user_email = ? AND created_at >= ? AND created_at < ?", email, from, to).
		Count(n).Error
}
