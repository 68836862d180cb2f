package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tiermaster/backend/internal/models"
)

// VoteLedger owns the votes table and the cached Item.Votes counter. Every
// write changes both inside one transaction.
type VoteLedger struct {
	db *gorm.DB
}

func NewVoteLedger(db *gorm.DB) *VoteLedger {
	return &VoteLedger{db: db}
}

// Cast records a vote by userID for item and increments the item's counter.
// A taken (user, category) slot yields *models.VoteConflictError.
func (l *VoteLedger) Cast(ctx context.Context, userID string, item models.Item) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return castTx(tx, userID, item)
	})
	return l.fillConflict(ctx, userID, err)
}

// Retract removes the vote by userID for itemID and decrements the counter,
// never below zero. models.ErrNoSuchVote is returned when there is nothing to
// remove; the counter is then left untouched.
func (l *VoteLedger) Retract(ctx context.Context, userID string, itemID uint) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return retractTx(tx, userID, itemID)
	})
}

// Move retracts the vote on fromItemID and casts one on to in a single
// transaction, so a failure on either side leaves both untouched.
func (l *VoteLedger) Move(ctx context.Context, userID string, fromItemID uint, to models.Item) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := retractTx(tx, userID, fromItemID); err != nil {
			return err
		}
		return castTx(tx, userID, to)
	})
	return l.fillConflict(ctx, userID, err)
}

// VotedItemIDs lists every item the user currently votes for.
func (l *VoteLedger) VotedItemIDs(ctx context.Context, userID string) ([]uint, error) {
	var ids []uint
	err := l.db.WithContext(ctx).Model(&models.Vote{}).
		Where("user_id = ?", userID).
		Order("created_at").
		Pluck("item_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("listing votes: %w", err)
	}
	return ids, nil
}

// HasVoted reports whether userID votes for itemID.
func (l *VoteLedger) HasVoted(ctx context.Context, userID string, itemID uint) (bool, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&models.Vote{}).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("checking vote: %w", err)
	}
	return n > 0, nil
}

// CountsByItem returns ledger vote counts for the given items. Items without
// votes are absent from the map.
func (l *VoteLedger) CountsByItem(ctx context.Context, itemIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(itemIDs))
	if len(itemIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ItemID uint
		N      int
	}
	err := l.db.WithContext(ctx).Model(&models.Vote{}).
		Select("item_id, COUNT(*) AS n").
		Where("item_id IN ?", itemIDs).
		Group("item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting votes: %w", err)
	}
	for _, r := range rows {
		counts[r.ItemID] = r.N
	}
	return counts, nil
}

func castTx(tx *gorm.DB, userID string, item models.Item) error {
	var existing models.Vote
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND category_id = ?", userID, item.CategoryID).
		Take(&existing).Error
	switch {
	case err == nil:
		return &models.VoteConflictError{CategoryID: item.CategoryID, ExistingItemID: existing.ItemID}
	case !isNotFound(err):
		return fmt.Errorf("checking category slot: %w", err)
	}

	vote := models.Vote{UserID: userID, ItemID: item.ID, CategoryID: item.CategoryID}
	if err := tx.Omit(clause.Associations).Create(&vote).Error; err != nil {
		switch {
		case isUniqueViolation(err):
			// a concurrent cast took the slot between our check and insert
			return &models.VoteConflictError{CategoryID: item.CategoryID}
		case isForeignKeyViolation(err):
			return models.ErrNotFound
		}
		return fmt.Errorf("inserting vote: %w", err)
	}

	res := tx.Model(&models.Item{}).
		Where("id = ?", item.ID).
		UpdateColumn("votes", gorm.Expr("votes + 1"))
	if res.Error != nil {
		return fmt.Errorf("incrementing counter: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return models.ErrNotFound
	}
	return nil
}

func retractTx(tx *gorm.DB, userID string, itemID uint) error {
	res := tx.Where("user_id = ? AND item_id = ?", userID, itemID).Delete(&models.Vote{})
	if res.Error != nil {
		return fmt.Errorf("deleting vote: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNoSuchVote
	}

	err := tx.Model(&models.Item{}).
		Where("id = ?", itemID).
		UpdateColumn("votes", gorm.Expr("GREATEST(votes - 1, 0)")).Error
	if err != nil {
		return fmt.Errorf("decrementing counter: %w", err)
	}
	return nil
}

// fillConflict looks up the item occupying the slot when a racing insert
// produced the conflict, since the failed transaction could not read it.
func (l *VoteLedger) fillConflict(ctx context.Context, userID string, err error) error {
	var conflict *models.VoteConflictError
	if !errors.As(err, &conflict) || conflict.ExistingItemID != 0 {
		return err
	}
	var existing models.Vote
	lookup := l.db.WithContext(ctx).
		Where("user_id = ? AND category_id = ?", userID, conflict.CategoryID).
		Take(&existing).Error
	if lookup == nil {
		conflict.ExistingItemID = existing.ItemID
	}
	return conflict
}
