package models

import "time"

type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
)

// DefaultRejectionReason is recorded when a moderator rejects without a reason.
const DefaultRejectionReason = "Rejected by administrator"

// ItemSuggestion is a user-proposed item awaiting moderation. Status leaves
// pending exactly once.
type ItemSuggestion struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Name            string           `gorm:"not null" json:"name"`
	CategoryID      uint             `gorm:"not null;index" json:"category_id"`
	Description     *string          `json:"description"`
	UserEmail       string           `gorm:"not null;index:idx_suggestions_user_created" json:"user_email"`
	UserName        string           `json:"user_name"`
	Status          SuggestionStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	ItemID          *uint            `json:"item_id"`
	ProcessedAt     *time.Time       `json:"processed_at"`
	ProcessedBy     *string          `json:"processed_by"`
	RejectionReason *string          `json:"rejection_reason"`
	CreatedAt       time.Time        `gorm:"index:idx_suggestions_user_created" json:"created_at"`

	Category *Category `json:"category,omitempty"`
	Item     *Item     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}

type SubmitSuggestionRequest struct {
	Name        string `json:"name"`
	CategoryID  uint   `json:"categoryId"`
	Description string `json:"description"`
}
