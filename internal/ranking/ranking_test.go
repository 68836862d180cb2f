package ranking

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiermaster/backend/internal/apperr"
	"github.com/tiermaster/backend/internal/models"
	"github.com/tiermaster/backend/internal/tier"
)

type fakeCatalog struct {
	groups     []models.Group
	categories []models.Category
	items      []models.Item
	failItems  map[uint]bool
	err        error
}

func (f *fakeCatalog) Category(_ context.Context, id uint) (models.Category, error) {
	if f.err != nil {
		return models.Category{}, f.err
	}
	for _, c := range f.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Category{}, models.ErrNotFound
}

func (f *fakeCatalog) Categories(context.Context) ([]models.Category, error) {
	return f.categories, f.err
}

func (f *fakeCatalog) Groups(context.Context) ([]models.Group, error) {
	return f.groups, f.err
}

func (f *fakeCatalog) FirstCategories(_ context.Context, n int) ([]models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	if n > len(f.categories) {
		n = len(f.categories)
	}
	return f.categories[:n], nil
}

func (f *fakeCatalog) ItemsByCategory(_ context.Context, categoryID uint, limit int) ([]models.Item, error) {
	if f.failItems[categoryID] {
		return nil, errors.New("boom")
	}
	var out []models.Item
	for _, it := range f.items {
		if it.CategoryID == categoryID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Votes > out[j].Votes })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCatalog) Item(_ context.Context, id uint) (models.Item, error) {
	for _, it := range f.items {
		if it.ID == id {
			for _, c := range f.categories {
				if c.ID == it.CategoryID {
					cat := c
					it.Category = &cat
				}
			}
			return it, nil
		}
	}
	return models.Item{}, models.ErrNotFound
}

func (f *fakeCatalog) RelatedItems(ctx context.Context, categoryID, excludeID uint, limit int) ([]models.Item, error) {
	all, err := f.ItemsByCategory(ctx, categoryID, 0)
	if err != nil {
		return nil, err
	}
	var out []models.Item
	for _, it := range all {
		if it.ID != excludeID && len(out) < limit {
			out = append(out, it)
		}
	}
	return out, nil
}

type fakeVotes struct {
	counts map[uint]int
	voted  map[string]uint
}

func (f *fakeVotes) CountsByItem(_ context.Context, ids []uint) (map[uint]int, error) {
	out := map[uint]int{}
	for _, id := range ids {
		if n, ok := f.counts[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (f *fakeVotes) HasVoted(_ context.Context, userID string, itemID uint) (bool, error) {
	return f.voted[userID] == itemID, nil
}

type fakeUsers map[string]models.User

func (f fakeUsers) ByEmail(_ context.Context, email string) (models.User, error) {
	u, ok := f[email]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

func newFixture() (*fakeCatalog, *fakeVotes, fakeUsers) {
	cat := &fakeCatalog{
		groups: []models.Group{{ID: 1, Name: "food"}},
		categories: []models.Category{
			{ID: 1, GroupID: 1, Name: "ramen"},
			{ID: 2, GroupID: 1, Name: "chicken"},
			{ID: 3, GroupID: 1, Name: "ice cream"},
			{ID: 4, GroupID: 1, Name: "snacks"},
		},
		items: []models.Item{
			{ID: 1, CategoryID: 1, Name: "a", Votes: 0},
			{ID: 2, CategoryID: 1, Name: "b", Votes: 25},
			{ID: 3, CategoryID: 1, Name: "c", Votes: 50},
			{ID: 4, CategoryID: 1, Name: "d", Votes: 75},
			{ID: 5, CategoryID: 1, Name: "e", Votes: 100},
			{ID: 6, CategoryID: 1, Name: "f", Votes: 1},
			{ID: 7, CategoryID: 2, Name: "g", Votes: 10},
		},
	}
	votes := &fakeVotes{
		counts: map[uint]int{5: 100, 4: 75, 3: 50, 2: 25, 6: 1},
		voted:  map[string]uint{"uid-1": 5},
	}
	users := fakeUsers{"alice@example.com": {ID: "uid-1", Email: "alice@example.com"}}
	return cat, votes, users
}

func TestCategoryBoard(t *testing.T) {
	svc := NewService(newFixture())

	board, err := svc.CategoryBoard(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, "ramen", board.Category.Name)
	require.Len(t, board.Items, 6)
	assert.Equal(t, uint(5), board.Items[0].ID)
	assert.Equal(t, 6, board.TieredItems.Len())
	assert.Len(t, board.TieredItems.S, 1)
	assert.Len(t, board.TieredItems.A, 1)
	assert.Len(t, board.TieredItems.B, 1)
	assert.Len(t, board.TieredItems.C, 1)
	assert.Len(t, board.TieredItems.D, 2)
}

func TestCategoryBoard_EmptyCategory(t *testing.T) {
	svc := NewService(newFixture())

	board, err := svc.CategoryBoard(context.Background(), 4)

	require.NoError(t, err)
	assert.Empty(t, board.Items)
	assert.NotNil(t, board.Items)
	assert.Zero(t, board.TieredItems.Len())
}

func TestCategoryBoard_NotFound(t *testing.T) {
	svc := NewService(newFixture())

	_, err := svc.CategoryBoard(context.Background(), 99)

	assert.True(t, apperr.Is(err, apperr.CodeCategoryNotFound))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCategoryBoard_StoreFailure(t *testing.T) {
	cat, votes, users := newFixture()
	cat.err = errors.New("db down")
	svc := NewService(cat, votes, users)

	_, err := svc.CategoryBoard(context.Background(), 1)

	assert.Equal(t, apperr.KindStoreFailure, apperr.KindOf(err))
}

func TestPopularTiers(t *testing.T) {
	cat, votes, users := newFixture()
	cat.failItems = map[uint]bool{2: true}
	svc := NewService(cat, votes, users)

	boards, err := svc.PopularTiers(context.Background())

	require.NoError(t, err)
	require.Len(t, boards, 3)
	assert.Equal(t, uint(1), boards[0].Category.ID)
	assert.Len(t, boards[0].Items, 5)
	assert.Empty(t, boards[1].Items, "failing category degrades to empty")
	assert.Empty(t, boards[2].Items)
}

func TestItemDetail(t *testing.T) {
	svc := NewService(newFixture())

	detail, err := svc.ItemDetail(context.Background(), 5, "alice@example.com")

	require.NoError(t, err)
	assert.Equal(t, 100, detail.Item.Votes)
	assert.Equal(t, tier.S, detail.Item.Tier)
	require.NotNil(t, detail.Item.Category)
	assert.Equal(t, "ramen", detail.Item.Category.Name)
	assert.True(t, detail.HasVoted)

	require.Len(t, detail.RelatedItems, 5)
	for _, r := range detail.RelatedItems {
		assert.NotEqual(t, uint(5), r.ID)
		assert.Equal(t, tier.Absolute(r.Votes), r.Tier)
	}
}

func TestItemDetail_AbsoluteNotRelative(t *testing.T) {
	svc := NewService(newFixture())

	// Item 7 is the only, and so top, item of its category but has no
	// ledger votes.
	detail, err := svc.ItemDetail(context.Background(), 7, "")

	require.NoError(t, err)
	assert.Equal(t, 0, detail.Item.Votes)
	assert.Equal(t, tier.D, detail.Item.Tier)
	assert.False(t, detail.HasVoted)
	assert.Empty(t, detail.RelatedItems)
}

func TestItemDetail_NotFound(t *testing.T) {
	svc := NewService(newFixture())

	_, err := svc.ItemDetail(context.Background(), 42, "")

	assert.True(t, apperr.Is(err, apperr.CodeItemNotFound))
}

func TestCatalog(t *testing.T) {
	svc := NewService(newFixture())

	listing, err := svc.Catalog(context.Background())

	require.NoError(t, err)
	assert.Len(t, listing.Groups, 1)
	assert.Len(t, listing.Categories, 4)
}
