package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tiermaster/backend/internal/auth"
	"github.com/tiermaster/backend/internal/database"
	"github.com/tiermaster/backend/internal/handlers"
	"github.com/tiermaster/backend/internal/models"
	"github.com/tiermaster/backend/internal/observability"
	"github.com/tiermaster/backend/internal/ranking"
	"github.com/tiermaster/backend/internal/server"
	"github.com/tiermaster/backend/internal/suggestion"
	"github.com/tiermaster/backend/internal/voting"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "handler-test-secret"

// world is an in-memory stand-in for every store behind the API.
type world struct {
	mu          sync.Mutex
	users       map[string]models.User
	groups      []models.Group
	categories  map[uint]models.Category
	items       map[uint]*models.Item
	votes       map[string]map[uint]uint // user id -> category id -> item id
	suggestions []*models.ItemSuggestion
	nextItem    uint
	seeded      int
	resets      int
	fail        error
}

func newWorld() *world {
	w := &world{
		users:      map[string]models.User{},
		categories: map[uint]models.Category{},
		items:      map[uint]*models.Item{},
		votes:      map[string]map[uint]uint{},
		nextItem:   100,
	}
	w.groups = []models.Group{{ID: 1, Name: "food"}}
	w.categories[1] = models.Category{ID: 1, GroupID: 1, Name: "ramen", Group: &w.groups[0]}
	w.categories[2] = models.Category{ID: 2, GroupID: 1, Name: "pizza", Group: &w.groups[0]}
	for id, cat := range map[uint]uint{1: 1, 2: 1, 3: 1, 4: 2} {
		w.items[id] = &models.Item{ID: id, CategoryID: cat, Name: "item"}
	}
	return w
}

func (w *world) addUser(email string, tier models.SubscriptionTier) models.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	u := models.User{ID: "uid-" + email, Email: email, Name: "name " + email, Tier: tier}
	w.users[email] = u
	return u
}

// users

func (w *world) ByEmail(_ context.Context, email string) (models.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		return models.User{}, w.fail
	}
	u, ok := w.users[email]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

func (w *world) Upsert(_ context.Context, u models.User) (models.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if old, ok := w.users[u.Email]; ok {
		u.ID, u.Tier, u.CreatedAt = old.ID, old.Tier, old.CreatedAt
	} else {
		u.ID, u.Tier, u.CreatedAt = "uid-"+u.Email, models.TierFree, time.Now()
	}
	w.users[u.Email] = u
	return u, nil
}

// catalog

func (w *world) Category(_ context.Context, id uint) (models.Category, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.categories[id]
	if !ok {
		return models.Category{}, models.ErrNotFound
	}
	return c, nil
}

func (w *world) Categories(_ context.Context) ([]models.Category, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.Category, 0, len(w.categories))
	for _, c := range w.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (w *world) Groups(_ context.Context) ([]models.Group, error) {
	return w.groups, nil
}

func (w *world) FirstCategories(ctx context.Context, n int) ([]models.Category, error) {
	all, _ := w.Categories(ctx)
	return all[:min(n, len(all))], nil
}

func (w *world) ItemsByCategory(_ context.Context, categoryID uint, limit int) ([]models.Item, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []models.Item
	for _, it := range w.items {
		if it.CategoryID == categoryID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (w *world) Item(_ context.Context, id uint) (models.Item, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	it, ok := w.items[id]
	if !ok {
		return models.Item{}, models.ErrNotFound
	}
	out := *it
	if c, ok := w.categories[it.CategoryID]; ok {
		out.Category = &c
	}
	return out, nil
}

func (w *world) RelatedItems(ctx context.Context, categoryID, excludeID uint, limit int) ([]models.Item, error) {
	all, _ := w.ItemsByCategory(ctx, categoryID, 0)
	all = slices.DeleteFunc(all, func(it models.Item) bool { return it.ID == excludeID })
	return all[:min(limit, len(all))], nil
}

func (w *world) CreateItem(_ context.Context, name string, categoryID uint) (models.Item, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.categories[categoryID]; !ok {
		return models.Item{}, models.ErrNotFound
	}
	w.nextItem++
	it := &models.Item{ID: w.nextItem, CategoryID: categoryID, Name: name}
	w.items[it.ID] = it
	return *it, nil
}

// vote ledger

func (w *world) Cast(_ context.Context, userID string, item models.Item) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.castLocked(userID, item)
}

func (w *world) castLocked(userID string, item models.Item) error {
	slots := w.votes[userID]
	if slots == nil {
		slots = map[uint]uint{}
		w.votes[userID] = slots
	}
	if existing, ok := slots[item.CategoryID]; ok {
		return &models.VoteConflictError{CategoryID: item.CategoryID, ExistingItemID: existing}
	}
	slots[item.CategoryID] = item.ID
	w.items[item.ID].Votes++
	return nil
}

func (w *world) Retract(_ context.Context, userID string, itemID uint) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.retractLocked(userID, itemID)
}

func (w *world) retractLocked(userID string, itemID uint) error {
	for cat, id := range w.votes[userID] {
		if id == itemID {
			delete(w.votes[userID], cat)
			w.items[itemID].Votes = max(0, w.items[itemID].Votes-1)
			return nil
		}
	}
	return models.ErrNoSuchVote
}

func (w *world) Move(_ context.Context, userID string, fromItemID uint, to models.Item) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.retractLocked(userID, fromItemID); err != nil {
		return err
	}
	return w.castLocked(userID, to)
}

func (w *world) VotedItemIDs(_ context.Context, userID string) ([]uint, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []uint
	for _, id := range w.votes[userID] {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

func (w *world) HasVoted(_ context.Context, userID string, itemID uint) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range w.votes[userID] {
		if id == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (w *world) CountsByItem(_ context.Context, itemIDs []uint) (map[uint]int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := map[uint]int{}
	for _, slots := range w.votes {
		for _, id := range slots {
			if slices.Contains(itemIDs, id) {
				out[id]++
			}
		}
	}
	return out, nil
}

// suggestions

func (w *world) CountInWindow(_ context.Context, email string, from, to time.Time) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.countLocked(email, from, to), nil
}

func (w *world) countLocked(email string, from, to time.Time) int {
	n := 0
	for _, s := range w.suggestions {
		if s.UserEmail == email && !s.CreatedAt.Before(from) && s.CreatedAt.Before(to) {
			n++
		}
	}
	return n
}

func (w *world) Create(_ context.Context, sug *models.ItemSuggestion, from, to time.Time, limit int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	used := w.countLocked(sug.UserEmail, from, to)
	if used >= limit {
		return used, &models.QuotaExceededError{Used: used, Limit: limit}
	}
	if _, ok := w.categories[sug.CategoryID]; !ok {
		return used, models.ErrNotFound
	}
	sug.ID = uint(len(w.suggestions) + 1)
	sug.Status = models.SuggestionPending
	sug.CreatedAt = time.Now().UTC()
	cp := *sug
	w.suggestions = append(w.suggestions, &cp)
	return used + 1, nil
}

func (w *world) List(_ context.Context) ([]models.ItemSuggestion, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		return nil, w.fail
	}
	out := make([]models.ItemSuggestion, 0, len(w.suggestions))
	for i := len(w.suggestions) - 1; i >= 0; i-- {
		out = append(out, *w.suggestions[i])
	}
	return out, nil
}

func (w *world) pendingLocked(id uint) (*models.ItemSuggestion, error) {
	if id == 0 || int(id) > len(w.suggestions) {
		return nil, models.ErrNotFound
	}
	s := w.suggestions[id-1]
	if s.Status != models.SuggestionPending {
		return nil, models.ErrAlreadyProcessed
	}
	return s, nil
}

func (w *world) Approve(_ context.Context, id uint, actor string, now time.Time) (models.ItemSuggestion, models.Item, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.pendingLocked(id)
	if err != nil {
		return models.ItemSuggestion{}, models.Item{}, err
	}
	w.nextItem++
	it := &models.Item{ID: w.nextItem, CategoryID: s.CategoryID, Name: s.Name}
	w.items[it.ID] = it
	s.Status = models.SuggestionApproved
	s.ItemID = &it.ID
	s.ProcessedAt = &now
	s.ProcessedBy = &actor
	return *s, *it, nil
}

func (w *world) Reject(_ context.Context, id uint, actor, reason string, now time.Time) (models.ItemSuggestion, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.pendingLocked(id)
	if err != nil {
		return models.ItemSuggestion{}, err
	}
	s.Status = models.SuggestionRejected
	s.RejectionReason = &reason
	s.ProcessedAt = &now
	s.ProcessedBy = &actor
	return *s, nil
}

// maintenance

func (w *world) Seed(_ context.Context) (database.SeedResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seeded++
	return database.SeedResult{Groups: 1, Categories: 2, Items: 4}, nil
}

func (w *world) Reset(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resets++
	w.votes = map[string]map[uint]uint{}
	w.suggestions = nil
	return nil
}

type stubVerifier struct {
	id  auth.Identity
	err error
}

func (v stubVerifier) Verify(context.Context, string) (auth.Identity, error) {
	return v.id, v.err
}

type testAPI struct {
	router  *gin.Engine
	world   *world
	issuer  *auth.Issuer
	metrics *observability.Metrics
}

func newTestAPI(t *testing.T) *testAPI {
	return newTestAPIWith(t, stubVerifier{}, nil)
}

func newTestAPIWith(t *testing.T, verifier auth.Verifier, flow *auth.OAuthFlow) *testAPI {
	t.Helper()
	w := newWorld()
	issuer := auth.NewIssuer(testSecret, time.Hour)
	metrics := observability.NewMetrics()

	deps := handlers.Deps{
		Auth:        auth.NewService(verifier, flow, w, issuer),
		Voting:      voting.NewService(w, w, w, metrics),
		Ranking:     ranking.NewService(w, w, w),
		Suggestions: suggestion.NewService(w, w, metrics),
		Items:       w,
		Maintenance: w,
		Cookie:      handlers.CookieConfig{Name: "tm_session", TTL: time.Hour},
	}
	routes := server.Routes{
		Sessions:       issuer,
		SessionCookie:  deps.Cookie.Name,
		Users:          w,
		ModeratorTiers: []models.SubscriptionTier{models.TierAdmin},
		Metrics:        metrics,
	}
	routes.Handler = handlers.NewHandler(deps)

	return &testAPI{router: server.RegisterRoutes(routes), world: w, issuer: issuer, metrics: metrics}
}

func (a *testAPI) login(t *testing.T, email string, tier models.SubscriptionTier) string {
	t.Helper()
	u := a.world.addUser(email, tier)
	token, err := a.issuer.Issue(u)
	require.NoError(t, err)
	return token
}

// do sends a JSON request and decodes the JSON response body.
func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Code != http.StatusFound && rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}
