// Package voting enforces the one-vote-per-category rule. All writes go
// through the vote ledger, which changes the vote rows and the cached item
// counters together.
package voting

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/models"
	"github.com/tiermaster/backend/internal/observability"
)

var tracer = otel.Tracer("tiermaster.voting")

// Ledger is the atomic vote store.
type Ledger interface {
	Cast(ctx context.Context, userID string, item models.Item) error
	Retract(ctx context.Context, userID string, itemID uint) error
	Move(ctx context.Context, userID string, fromItemID uint, to models.Item) error
	VotedItemIDs(ctx context.Context, userID string) ([]uint, error)
}

type ItemReader interface {
	Item(ctx context.Context, id uint) (models.Item, error)
}

type UserReader interface {
	ByEmail(ctx context.Context, email string) (models.User, error)
}

type Service struct {
	ledger  Ledger
	items   ItemReader
	users   UserReader
	metrics *observability.Metrics
}

func NewService(ledger Ledger, items ItemReader, users UserReader, metrics *observability.Metrics) *Service {
	return &Service{ledger: ledger, items: items, users: users, metrics: metrics}
}

// Cast records a vote by the user with the given email for itemID. A second
// vote in the same category, for the same or a different item, is a conflict;
// switching requires a retract first, or Move.
func (s *Service) Cast(ctx context.Context, email string, itemID uint) (err error) {
	ctx, span := tracer.Start(ctx, "voting.Cast", trace.WithAttributes(
		attribute.Int("item_id", int(itemID)),
	))
	defer func() { s.finish(span, observability.OpCast, err) }()

	if email == "" {
		return apperr.Unauthenticated()
	}

	var user models.User
	var item models.Item
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.resolveUser(gCtx, email)
		return err
	})
	g.Go(func() error {
		var err error
		item, err = s.resolveItem(gCtx, itemID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	err = s.ledger.Cast(ctx, user.ID, item)
	if err != nil {
		return castError(err, item)
	}
	slog.InfoContext(ctx, "vote cast", "user_id", user.ID, "item_id", item.ID, "category_id", item.CategoryID)
	return nil
}

// Retract removes the user's vote for itemID.
func (s *Service) Retract(ctx context.Context, email string, itemID uint) (err error) {
	ctx, span := tracer.Start(ctx, "voting.Retract", trace.WithAttributes(
		attribute.Int("item_id", int(itemID)),
	))
	defer func() { s.finish(span, observability.OpRetract, err) }()

	if email == "" {
		return apperr.Unauthenticated()
	}
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return err
	}

	if err := s.ledger.Retract(ctx, user.ID, itemID); err != nil {
		if errors.Is(err, models.ErrNoSuchVote) {
			return apperr.New(apperr.KindNotFound, apperr.CodeNoSuchVote, "you have not voted for this item").
				WithDetail("itemId", itemID)
		}
		return apperr.Store(err)
	}
	slog.InfoContext(ctx, "vote retracted", "user_id", user.ID, "item_id", itemID)
	return nil
}

// Move switches the user's vote from one item to another item of the same
// category in a single atomic step.
func (s *Service) Move(ctx context.Context, email string, fromItemID, toItemID uint) (err error) {
	ctx, span := tracer.Start(ctx, "voting.Move", trace.WithAttributes(
		attribute.Int("from_item_id", int(fromItemID)),
		attribute.Int("to_item_id", int(toItemID)),
	))
	defer func() { s.finish(span, observability.OpMove, err) }()

	if email == "" {
		return apperr.Unauthenticated()
	}
	if fromItemID == toItemID {
		return apperr.New(apperr.KindInvalid, apperr.CodeInvalidRequest, "source and target item are the same")
	}

	var user models.User
	var from, to models.Item
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.resolveUser(gCtx, email)
		return err
	})
	g.Go(func() error {
		var err error
		from, err = s.resolveItem(gCtx, fromItemID)
		return err
	})
	g.Go(func() error {
		var err error
		to, err = s.resolveItem(gCtx, toItemID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if from.CategoryID != to.CategoryID {
		return apperr.New(apperr.KindInvalid, apperr.CodeCategoryMismatch, "both items must belong to the same category")
	}

	err = s.ledger.Move(ctx, user.ID, from.ID, to)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNoSuchVote):
		return apperr.New(apperr.KindNotFound, apperr.CodeNoSuchVote, "you have not voted for the source item").
			WithDetail("itemId", fromItemID)
	default:
		return castError(err, to)
	}
	slog.InfoContext(ctx, "vote moved", "user_id", user.ID, "from_item_id", from.ID, "to_item_id", to.ID)
	return nil
}

// ListUserVotes returns the ids of the items the user votes for. Anonymous
// callers and unknown users get an empty list.
func (s *Service) ListUserVotes(ctx context.Context, email string) ([]uint, error) {
	if email == "" {
		return []uint{}, nil
	}
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return []uint{}, nil
		}
		return nil, apperr.Store(err)
	}
	ids, err := s.ledger.VotedItemIDs(ctx, user.ID)
	if err != nil {
		return nil, apperr.Store(err)
	}
	if ids == nil {
		ids = []uint{}
	}
	return ids, nil
}

func (s *Service) resolveUser(ctx context.Context, email string) (models.User, error) {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.User{}, apperr.New(apperr.KindNotFound, apperr.CodeUserNotFound, "user not found")
		}
		return models.User{}, apperr.Store(err)
	}
	return user, nil
}

func (s *Service) resolveItem(ctx context.Context, id uint) (models.Item, error) {
	item, err := s.items.Item(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Item{}, apperr.New(apperr.KindNotFound, apperr.CodeItemNotFound, "item not found").
				WithDetail("itemId", id)
		}
		return models.Item{}, apperr.Store(err)
	}
	return item, nil
}

func castError(err error, item models.Item) error {
	var conflict *models.VoteConflictError
	switch {
	case errors.As(err, &conflict):
		if conflict.ExistingItemID == item.ID {
			return apperr.New(apperr.KindConflict, apperr.CodeAlreadyVoted, "you already voted for this item").
				WithDetail("itemId", item.ID)
		}
		e := apperr.New(apperr.KindConflict, apperr.CodeAlreadyVotedInCategory,
			"you already voted in this category, retract that vote first").
			WithDetail("categoryId", conflict.CategoryID)
		if conflict.ExistingItemID != 0 {
			e = e.WithDetail("existingItemId", conflict.ExistingItemID)
		}
		return e
	case errors.Is(err, models.ErrNotFound):
		return apperr.New(apperr.KindNotFound, apperr.CodeItemNotFound, "item not found").
			WithDetail("itemId", item.ID)
	}
	return apperr.Store(err)
}

func (s *Service) finish(span trace.Span, op string, err error) {
	defer span.End()
	if err == nil {
		s.metrics.RecordVote(op, "ok")
		span.SetStatus(codes.Ok, "")
		return
	}
	e := apperr.As(err)
	s.metrics.RecordVote(op, e.Code)
	span.SetAttributes(attribute.String("error.code", e.Code))
	if e.Kind == apperr.KindStoreFailure {
		span.RecordError(err)
		span.SetStatus(codes.Error, e.Code)
		slog.Error("vote operation failed", "op", op, "error", err)
	}
}
