// Package suggestion handles user-proposed items: submission under a monthly
// quota that depends on the submitter's subscription tier, and the one-shot
// moderation transition from pending to approved or rejected.
package suggestion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/models"
	"github.com/tiermaster/backend/internal/observability"
)

// Moderation actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// anonymousName is recorded when the submitter has no display name.
const anonymousName = "Anonymous"

type Store interface {
	CountInWindow(ctx context.Context, email string, from, to time.Time) (int, error)
	Create(ctx context.Context, sug *models.ItemSuggestion, from, to time.Time, limit int) (int, error)
	List(ctx context.Context) ([]models.ItemSuggestion, error)
	Approve(ctx context.Context, id uint, actor string, now time.Time) (models.ItemSuggestion, models.Item, error)
	Reject(ctx context.Context, id uint, actor, reason string, now time.Time) (models.ItemSuggestion, error)
}

type UserReader interface {
	ByEmail(ctx context.Context, email string) (models.User, error)
}

type Service struct {
	store   Store
	users   UserReader
	metrics *observability.Metrics
	now     func() time.Time
}

func NewService(store Store, users UserReader, metrics *observability.Metrics) *Service {
	return &Service{store: store, users: users, metrics: metrics, now: time.Now}
}

// MonthWindow returns the calendar month containing t, in UTC, as a half-open
// interval [from, to).
func MonthWindow(t time.Time) (from, to time.Time) {
	t = t.UTC()
	from = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

type Quota struct {
	Used      int                     `json:"used"`
	Remaining int                     `json:"remaining"`
	Max       int                     `json:"max"`
	Tier      models.SubscriptionTier `json:"tier"`
}

// Submitter identifies who is proposing an item.
type Submitter struct {
	Email string
	Name  string
}

// Submit records a pending suggestion if the submitter still has quota left
// this month.
func (s *Service) Submit(ctx context.Context, who Submitter, req models.SubmitSuggestionRequest) (models.ItemSuggestion, Quota, error) {
	if who.Email == "" {
		return models.ItemSuggestion{}, Quota{}, apperr.Unauthenticated()
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || req.CategoryID == 0 {
		return models.ItemSuggestion{}, Quota{}, apperr.New(apperr.KindInvalid, apperr.CodeMissingFields,
			"name and categoryId are required")
	}

	t, err := s.tierOf(ctx, who.Email)
	if err != nil {
		return models.ItemSuggestion{}, Quota{}, err
	}
	limit := t.MonthlySubmissionLimit()

	sug := models.ItemSuggestion{
		Name:       name,
		CategoryID: req.CategoryID,
		UserEmail:  who.Email,
		UserName:   who.Name,
	}
	if sug.UserName == "" {
		sug.UserName = anonymousName
	}
	if d := strings.TrimSpace(req.Description); d != "" {
		sug.Description = &d
	}

	from, to := MonthWindow(s.now())
	used, err := s.store.Create(ctx, &sug, from, to, limit)
	if err != nil {
		var quota *models.QuotaExceededError
		switch {
		case errors.As(err, &quota):
			s.metrics.RecordSuggestion("quota_exceeded")
			slog.InfoContext(ctx, "suggestion quota exceeded", "email", who.Email, "used", quota.Used, "limit", quota.Limit)
			return models.ItemSuggestion{}, Quota{}, apperr.New(apperr.KindQuotaExceeded, apperr.CodeQuotaExceeded,
				"you have used all of this month's suggestions").
				WithDetail("used", quota.Used).
				WithDetail("max", quota.Limit).
				WithDetail("tier", t)
		case errors.Is(err, models.ErrNotFound):
			return models.ItemSuggestion{}, Quota{}, apperr.New(apperr.KindNotFound, apperr.CodeCategoryNotFound,
				"category not found").WithDetail("categoryId", req.CategoryID)
		}
		return models.ItemSuggestion{}, Quota{}, apperr.Store(err)
	}

	s.metrics.RecordSuggestion("submitted")
	slog.InfoContext(ctx, "suggestion submitted", "suggestion_id", sug.ID, "category_id", sug.CategoryID, "email", who.Email)
	return sug, newQuota(used, limit, t), nil
}

// Remaining reports the caller's quota usage for the current month.
func (s *Service) Remaining(ctx context.Context, email string) (Quota, error) {
	if email == "" {
		return Quota{}, apperr.Unauthenticated()
	}
	t, err := s.tierOf(ctx, email)
	if err != nil {
		return Quota{}, err
	}
	from, to := MonthWindow(s.now())
	used, err := s.store.CountInWindow(ctx, email, from, to)
	if err != nil {
		return Quota{}, apperr.Store(err)
	}
	return newQuota(used, t.MonthlySubmissionLimit(), t), nil
}

func newQuota(used, limit int, t models.SubscriptionTier) Quota {
	return Quota{Used: used, Remaining: max(0, limit-used), Max: limit, Tier: t}
}

// tierOf resolves the submitter's plan; accounts not yet registered count as
// free.
func (s *Service) tierOf(ctx context.Context, email string) (models.SubscriptionTier, error) {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.TierFree, nil
		}
		return "", apperr.Store(err)
	}
	return models.ParseSubscriptionTier(string(user.Tier)), nil
}

// List returns every suggestion, newest first.
func (s *Service) List(ctx context.Context) ([]models.ItemSuggestion, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Store(err)
	}
	if out == nil {
		out = []models.ItemSuggestion{}
	}
	return out, nil
}

type ProcessRequest struct {
	ID     uint   `json:"id"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type Outcome struct {
	Message    string                `json:"message"`
	Suggestion models.ItemSuggestion `json:"suggestion"`
	Item       *models.Item          `json:"item,omitempty"`
}

// Process applies a moderation action taken by actor.
func (s *Service) Process(ctx context.Context, actor string, req ProcessRequest) (Outcome, error) {
	if actor == "" {
		return Outcome{}, apperr.Unauthenticated()
	}
	if req.ID == 0 || req.Action == "" {
		return Outcome{}, apperr.New(apperr.KindInvalid, apperr.CodeMissingFields, "id and action are required")
	}

	now := s.now().UTC()
	var out Outcome
	var err error
	switch req.Action {
	case ActionApprove:
		var item models.Item
		out.Suggestion, item, err = s.store.Approve(ctx, req.ID, actor, now)
		if err == nil {
			out.Item = &item
			out.Message = "suggestion approved"
		}
	case ActionReject:
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = models.DefaultRejectionReason
		}
		out.Suggestion, err = s.store.Reject(ctx, req.ID, actor, reason, now)
		out.Message = "suggestion rejected"
	default:
		return Outcome{}, apperr.New(apperr.KindInvalid, apperr.CodeInvalidAction,
			"action must be approve or reject").WithDetail("action", req.Action)
	}

	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		return Outcome{}, apperr.New(apperr.KindNotFound, apperr.CodeSuggestionNotFound, "suggestion not found").
			WithDetail("id", req.ID)
	case errors.Is(err, models.ErrAlreadyProcessed):
		return Outcome{}, apperr.New(apperr.KindConflict, apperr.CodeAlreadyProcessed, "suggestion was already processed").
			WithDetail("id", req.ID)
	default:
		return Outcome{}, apperr.Store(err)
	}

	s.metrics.RecordSuggestion(string(out.Suggestion.Status))
	slog.InfoContext(ctx, "suggestion processed", "suggestion_id", req.ID, "action", req.Action, "actor", actor)
	return out, nil
}
