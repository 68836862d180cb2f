package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionTier is a user's account plan. It is unrelated to item tiers.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
	TierPro     SubscriptionTier = "pro"
	TierAdmin   SubscriptionTier = "admin"
)

// unlimitedSubmissions stands in for "no limit" on paid and admin plans.
const unlimitedSubmissions = 999

var monthlySubmissionLimits = map[SubscriptionTier]int{
	TierFree:    2,
	TierPremium: 10,
	TierPro:     unlimitedSubmissions,
	TierAdmin:   unlimitedSubmissions,
}

// monthly plan prices in KRW
var tierPrices = map[SubscriptionTier]int{
	TierPremium: 4900,
	TierPro:     9900,
}

// ParseSubscriptionTier returns the tier named by s, falling back to free for
// anything unrecognised.
func ParseSubscriptionTier(s string) SubscriptionTier {
	switch t := SubscriptionTier(s); t {
	case TierFree, TierPremium, TierPro, TierAdmin:
		return t
	default:
		return TierFree
	}
}

// MonthlySubmissionLimit is how many item suggestions the tier may create per
// calendar month.
func (t SubscriptionTier) MonthlySubmissionLimit() int {
	if limit, ok := monthlySubmissionLimits[t]; ok {
		return limit
	}
	return monthlySubmissionLimits[TierFree]
}

// ShowsAds reports whether pages rendered for this tier carry ads.
func (t SubscriptionTier) ShowsAds() bool {
	return t == TierFree || t == ""
}

// MonthlyPrice returns the plan price, zero for free and admin.
func (t SubscriptionTier) MonthlyPrice() int {
	return tierPrices[t]
}

// User is keyed by email; ID is assigned on first login.
type User struct {
	ID           string           `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string           `gorm:"uniqueIndex;size:320;not null" json:"email"`
	Name         string           `gorm:"size:120" json:"name"`
	ProfileImage string           `json:"profile_image"`
	ProviderID   string           `gorm:"index" json:"-"`
	ProviderType string           `gorm:"size:32" json:"provider_type"`
	Tier         SubscriptionTier `gorm:"size:16;not null;default:free" json:"tier"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Tier == "" {
		u.Tier = TierFree
	}
	return nil
}

// GoogleLoginRequest carries an ID token obtained by the frontend.
type GoogleLoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
