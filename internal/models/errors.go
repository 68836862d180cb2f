package models

import (
	"errors"
	"fmt"
)

// Store-level outcomes shared by the database layer and the services that
// consume it.
var (
	ErrNotFound         = errors.New("record not found")
	ErrNoSuchVote       = errors.New("no vote for this user and item")
	ErrAlreadyProcessed = errors.New("suggestion already processed")
)

// VoteConflictError reports that the (user, category) slot is already taken.
type VoteConflictError struct {
	CategoryID     uint
	ExistingItemID uint
}

func (e *VoteConflictError) Error() string {
	return fmt.Sprintf("user already voted for item %d in category %d", e.ExistingItemID, e.CategoryID)
}

// QuotaExceededError reports that the submitter has used their monthly
// suggestion allowance.
type QuotaExceededError struct {
	Used  int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly suggestion limit reached (%d/%d)", e.Used, e.Limit)
}
