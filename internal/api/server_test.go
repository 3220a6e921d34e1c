package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/WishboT/internal/draft"
	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository/memory"
	"github.com/Kerhoff/WishboT/internal/service"
	"github.com/Kerhoff/WishboT/internal/subscription"
)

type fixture struct {
	svc     *service.Service
	handler http.Handler
	public  *models.Wishlist
	private *models.Wishlist
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repos := memory.New()
	drafts := draft.NewManager(draft.NewMemoryStore(time.Hour, nil, logger), repos, nil, logger)
	svc := service.New(repos, drafts, subscription.NewManager(repos, nil, logger), models.LanguageEnglish, logger)

	ctx := context.Background()
	owner, err := svc.EnsureUser(ctx, 100, "owner", "Olga")
	require.NoError(t, err)
	guest, err := svc.EnsureUser(ctx, 200, "guest", "Gleb")
	require.NoError(t, err)

	public, err := repos.Wishlists.Create(ctx, &models.Wishlist{OwnerID: owner.ID, Title: "Birthday", Description: "Turning 30"})
	require.NoError(t, err)
	private, err := repos.Wishlists.Create(ctx, &models.Wishlist{OwnerID: owner.ID, Title: "Secret list", Description: "hidden", IsPrivate: true})
	require.NoError(t, err)

	price := decimal.NewFromInt(250)
	bike, err := repos.Items.Create(ctx, &models.Item{WishlistID: public.ID, Name: "Bicycle", Price: &price, Priority: models.PriorityHigh})
	require.NoError(t, err)
	_, err = repos.Items.Create(ctx, &models.Item{WishlistID: public.ID, Name: "<script>"})
	require.NoError(t, err)
	_, err = repos.Items.Create(ctx, &models.Item{WishlistID: private.ID, Name: "Diary"})
	require.NoError(t, err)

	ok, err := repos.Items.Reserve(ctx, bike.ID, guest.ID)
	require.NoError(t, err)
	require.True(t, ok)

	return &fixture{
		svc:     svc,
		handler: NewServer(svc, logger).Handler(),
		public:  public,
		private: private,
	}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestHealthReportsFailingChecks(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	server := NewServer(nil, logger)
	server.AddCheck("database", func(context.Context) error { return nil })
	server.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "unavailable", body["status"])
	assert.Equal(t, map[string]any{"database": "ok", "redis": "connection refused"}, body["checks"])
}

func TestPublicWishlistByToken(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/wishlists/"+f.public.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	body := decode(t, rec)
	assert.Equal(t, "Birthday", body["title"])
	assert.Equal(t, "@owner", body["owner"])
	assert.Equal(t, false, body["limited"])
	assert.Equal(t, "Turning 30", body["description"])

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)

	var bike map[string]any
	for _, raw := range items {
		item := raw.(map[string]any)
		if item["name"] == "Bicycle" {
			bike = item
		}
	}
	require.NotNil(t, bike)
	assert.Equal(t, "250.00", bike["price"])
	assert.Equal(t, "high", bike["priority"])
	assert.Equal(t, true, bike["reserved"])
}

func TestPrivateWishlistIsLimited(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/wishlists/"+f.private.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Secret list", body["title"])
	assert.Equal(t, true, body["private"])
	assert.Equal(t, true, body["limited"])
	assert.NotContains(t, body, "description")
	assert.NotContains(t, body, "items")
}

func TestUnknownOrDeletedWishlistIsNotFound(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Wishlists.SoftDelete(context.Background(), f.public.ID))

	for _, ref := range []string{
		f.public.AccessToken,
		strconv.FormatInt(f.public.ID, 10),
		"not-a-token",
		"0",
		"00000000-0000-0000-0000-000000000000",
	} {
		rec := f.get(t, "/api/wishlists/"+ref)
		assert.Equal(t, http.StatusNotFound, rec.Code, ref)
		assert.Equal(t, "wishlist not found", decode(t, rec)["error"], ref)
	}
}

func TestLinkViewsRejectNumericIDs(t *testing.T) {
	f := newFixture(t)

	for _, w := range []*models.Wishlist{f.public, f.private} {
		id := strconv.FormatInt(w.ID, 10)

		rec := f.get(t, "/api/wishlists/"+id)
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
		body := decode(t, rec)
		assert.Equal(t, "wishlist not found", body["error"], id)
		assert.NotContains(t, body, "title", id)

		rec = f.get(t, "/w/"+id)
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
		assert.NotContains(t, rec.Body.String(), w.Title, id)
	}
}

func TestWishlistPageEscapesContent(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/w/"+f.public.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	page := rec.Body.String()
	assert.Contains(t, page, "<h1>Birthday</h1>")
	assert.Contains(t, page, "<s>Bicycle</s>")
	assert.Contains(t, page, "&lt;script&gt;")
	assert.NotContains(t, page, "<script>")

	rec = f.get(t, "/w/"+f.private.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "This wishlist is private")
	assert.NotContains(t, rec.Body.String(), "Diary")

	rec = f.get(t, "/w/garbage")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
