package handlers

import (
	"context"

	"github.com/tiermaster/backend/internal/auth"
	"github.com/tiermaster/backend/internal/database"
	"github.com/tiermaster/backend/internal/models"
	"github.com/tiermaster/backend/internal/ranking"
	"github.com/tiermaster/backend/internal/suggestion"
	"github.com/tiermaster/backend/internal/voting"
)

// Handler combines all handler types
type Handler struct {
	Auth       *AuthHandler
	Vote       *VoteHandler
	Ranking    *RankingHandler
	Suggestion *SuggestionHandler
	Admin      *AdminHandler
	User       *UserHandler
}

type ItemCreator interface {
	CreateItem(ctx context.Context, name string, categoryID uint) (models.Item, error)
}

type Maintainer interface {
	Seed(ctx context.Context) (database.SeedResult, error)
	Reset(ctx context.Context) error
}

// Deps are the services the handlers delegate to.
type Deps struct {
	Auth        *auth.Service
	Voting      *voting.Service
	Ranking     *ranking.Service
	Suggestions *suggestion.Service
	Items       ItemCreator
	Maintenance Maintainer
	Cookie      CookieConfig
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(d Deps) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(d.Auth, d.Cookie),
		Vote:       NewVoteHandler(d.Voting),
		Ranking:    NewRankingHandler(d.Ranking),
		Suggestion: NewSuggestionHandler(d.Suggestions),
		Admin:      NewAdminHandler(d.Suggestions, d.Items, d.Maintenance),
		User:       NewUserHandler(d.Auth),
	}
}
