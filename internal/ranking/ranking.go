// Package ranking serves the read paths: a category's tier board, the home
// page's popular tiers and single-item detail.
//
// Category boards use relative tiers (position between the category's least
// and most voted items). Item detail uses absolute tiers keyed on the raw
// vote count. The two answer different questions and are kept apart.
package ranking

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/models"
	"github.com/tiermaster/backend/internal/tier"
)

const (
	popularCategoryCount = 3
	popularItemsPerBoard = 5
	relatedItemLimit     = 6
)

type Catalog interface {
	Category(ctx context.Context, id uint) (models.Category, error)
	Categories(ctx context.Context) ([]models.Category, error)
	Groups(ctx context.Context) ([]models.Group, error)
	FirstCategories(ctx context.Context, n int) ([]models.Category, error)
	ItemsByCategory(ctx context.Context, categoryID uint, limit int) ([]models.Item, error)
	Item(ctx context.Context, id uint) (models.Item, error)
	RelatedItems(ctx context.Context, categoryID, excludeID uint, limit int) ([]models.Item, error)
}

type VoteCounter interface {
	CountsByItem(ctx context.Context, itemIDs []uint) (map[uint]int, error)
	HasVoted(ctx context.Context, userID string, itemID uint) (bool, error)
}

type UserReader interface {
	ByEmail(ctx context.Context, email string) (models.User, error)
}

type Service struct {
	catalog Catalog
	votes   VoteCounter
	users   UserReader
}

func NewService(catalog Catalog, votes VoteCounter, users UserReader) *Service {
	return &Service{catalog: catalog, votes: votes, users: users}
}

type Board struct {
	Category    models.Category           `json:"category"`
	Items       []models.Item             `json:"items"`
	TieredItems tier.Buckets[models.Item] `json:"tieredItems"`
}

// CategoryBoard returns every item of a category, most voted first, with
// relative tiers.
func (s *Service) CategoryBoard(ctx context.Context, categoryID uint) (Board, error) {
	cat, err := s.catalog.Category(ctx, categoryID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return Board{}, apperr.New(apperr.KindNotFound, apperr.CodeCategoryNotFound, "category not found").
				WithDetail("categoryId", categoryID)
		}
		return Board{}, apperr.Store(err)
	}
	items, err := s.catalog.ItemsByCategory(ctx, categoryID, 0)
	if err != nil {
		return Board{}, apperr.Store(err)
	}
	return newBoard(cat, items), nil
}

// PopularTiers builds small boards for the first categories. Boards are
// loaded in parallel; a category whose items cannot be read is shown empty
// rather than failing the page.
func (s *Service) PopularTiers(ctx context.Context) ([]Board, error) {
	cats, err := s.catalog.FirstCategories(ctx, popularCategoryCount)
	if err != nil {
		return nil, apperr.Store(err)
	}

	boards := make([]Board, len(cats))
	g, gCtx := errgroup.WithContext(ctx)
	for i, cat := range cats {
		i, cat := i, cat
		g.Go(func() error {
			items, err := s.catalog.ItemsByCategory(gCtx, cat.ID, popularItemsPerBoard)
			if err != nil {
				slog.WarnContext(gCtx, "popular tiers: items unavailable", "category_id", cat.ID, "error", err)
				items = nil
			}
			boards[i] = newBoard(cat, items)
			return nil
		})
	}
	_ = g.Wait()
	return boards, nil
}

func newBoard(cat models.Category, items []models.Item) Board {
	if items == nil {
		items = []models.Item{}
	}
	return Board{
		Category:    cat,
		Items:       items,
		TieredItems: tier.Classify(items, models.ItemVotes),
	}
}

type RankedItem struct {
	ID    uint      `json:"id"`
	Name  string    `json:"name"`
	Votes int       `json:"votes"`
	Tier  tier.Tier `json:"tier"`
}

type ItemView struct {
	RankedItem
	CategoryID uint             `json:"category_id"`
	Category   *models.Category `json:"category"`
}

type ItemDetail struct {
	Item         ItemView     `json:"item"`
	RelatedItems []RankedItem `json:"relatedItems"`
	HasVoted     bool         `json:"hasVoted"`
}

// ItemDetail returns one item with its ledger vote count and absolute tier,
// whether the caller has voted for it, and up to six other items of its
// category. An empty email means an anonymous caller.
func (s *Service) ItemDetail(ctx context.Context, itemID uint, email string) (ItemDetail, error) {
	item, err := s.catalog.Item(ctx, itemID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ItemDetail{}, apperr.New(apperr.KindNotFound, apperr.CodeItemNotFound, "item not found").
				WithDetail("itemId", itemID)
		}
		return ItemDetail{}, apperr.Store(err)
	}

	var related []models.Item
	var hasVoted bool
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		related, err = s.catalog.RelatedItems(gCtx, item.CategoryID, item.ID, relatedItemLimit)
		if err != nil {
			slog.WarnContext(gCtx, "item detail: related items unavailable", "item_id", item.ID, "error", err)
			related = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		hasVoted, err = s.hasVoted(gCtx, email, item.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return ItemDetail{}, apperr.Store(err)
	}

	ids := make([]uint, 0, len(related)+1)
	ids = append(ids, item.ID)
	for _, r := range related {
		ids = append(ids, r.ID)
	}
	counts, err := s.votes.CountsByItem(ctx, ids)
	if err != nil {
		return ItemDetail{}, apperr.Store(err)
	}

	detail := ItemDetail{
		Item: ItemView{
			RankedItem: ranked(item, counts),
			CategoryID: item.CategoryID,
			Category:   item.Category,
		},
		RelatedItems: make([]RankedItem, 0, len(related)),
		HasVoted:     hasVoted,
	}
	for _, r := range related {
		detail.RelatedItems = append(detail.RelatedItems, ranked(r, counts))
	}
	return detail, nil
}

func ranked(item models.Item, counts map[uint]int) RankedItem {
	votes := counts[item.ID]
	return RankedItem{ID: item.ID, Name: item.Name, Votes: votes, Tier: tier.Absolute(votes)}
}

func (s *Service) hasVoted(ctx context.Context, email string, itemID uint) (bool, error) {
	if email == "" {
		return false, nil
	}
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.votes.HasVoted(ctx, user.ID, itemID)
}

type CatalogListing struct {
	Groups     []models.Group    `json:"groups"`
	Categories []models.Category `json:"categories"`
}

// Catalog lists all groups and categories.
func (s *Service) Catalog(ctx context.Context) (CatalogListing, error) {
	var out CatalogListing
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Groups, err = s.catalog.Groups(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Categories, err = s.catalog.Categories(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return CatalogListing{}, apperr.Store(err)
	}
	if out.Groups == nil {
		out.Groups = []models.Group{}
	}
	if out.Categories == nil {
		out.Categories = []models.Category{}
	}
	return out, nil
}
