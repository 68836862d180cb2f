package models

import "time"

// Group is a top-level taxonomy node.
type Group struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// Category is the scope of the one-vote-per-user rule.
type Category struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	GroupID uint   `gorm:"not null;uniqueIndex:idx_categories_group_name" json:"group_id"`
	Name    string `gorm:"not null;uniqueIndex:idx_categories_group_name" json:"name"`
	Group   *Group `json:"group,omitempty"`
}

// Item is a votable entry. Votes caches the number of Vote rows pointing at
// the item and is only written by the vote ledger.
type Item struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CategoryID uint      `gorm:"not null;index" json:"category_id"`
	Name       string    `gorm:"not null" json:"name"`
	Votes      int       `gorm:"not null;default:0;check:votes >= 0" json:"votes"`
	CreatedAt  time.Time `json:"created_at"`
	Category   *Category `json:"category,omitempty"`
}

// ItemVotes returns the cached counter, for use with the tier classifiers.
func ItemVotes(i Item) int { return i.Votes }

type CreateItemRequest struct {
	Name       string `json:"name" binding:"required"`
	CategoryID uint   `json:"categoryId" binding:"required"`
}
