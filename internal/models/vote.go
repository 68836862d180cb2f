package models

import "time"

// Vote is one user's endorsement of one item. CategoryID duplicates the
// item's category so the (user, category) uniqueness can be enforced by an
// index.
type Vote struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_category;uniqueIndex:idx_votes_user_item" json:"user_id"`
	ItemID     uint      `gorm:"not null;index;uniqueIndex:idx_votes_user_item" json:"item_id"`
	CategoryID uint      `gorm:"not null;uniqueIndex:idx_votes_user_category" json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`

	User     User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Item     Item     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Category Category `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
