package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/WishboT/internal/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var wishlistRowColumns = []string{
	"id", "access_token", "owner_id", "title", "description", "event_date",
	"is_private", "is_deleted", "created_at", "updated_at",
}

func TestUserUpsertReturnsStoredRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (telegram_id) DO UPDATE")).
		WithArgs(int64(42), "alice", "Alice", "en", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "telegram_id", "telegram_username", "first_name", "language", "created_at", "updated_at"}).
			AddRow(int64(7), int64(42), "alice", "Alice", "en", now, now))

	user, err := repo.Upsert(context.Background(), &models.User{TelegramID: 42, TelegramUsername: "alice", FirstName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "@alice", user.DisplayName())
}

func TestUserGetByTelegramIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE telegram_id = $1")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	user, err := repo.GetByTelegramID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestWishlistCreateRegeneratesCollidingToken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWishlistRepository(db)
	now := time.Now()

	insert := regexp.QuoteMeta("INSERT INTO wishlists")
	mock.ExpectQuery(insert).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: accessTokenKey})
	mock.ExpectQuery(insert).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(3), now, now))

	w, err := repo.Create(context.Background(), &models.Wishlist{OwnerID: 1, Title: "Birthday 2025", IsPrivate: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), w.ID)
	assert.Len(t, w.AccessToken, 36)
}

func TestWishlistCreateKeepsExplicitTokenOnCollision(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWishlistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wishlists")).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: accessTokenKey})

	_, err := repo.Create(context.Background(), &models.Wishlist{AccessToken: "fixed", OwnerID: 1, Title: "Birthday"})
	require.Error(t, err)
}

func TestWishlistReadsApplyActivePredicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWishlistRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE w.access_token = $1 AND w.is_deleted = FALSE")).
		WithArgs("token").
		WillReturnRows(sqlmock.NewRows(wishlistRowColumns).
			AddRow(int64(1), "token", int64(2), "Birthday", "", nil, true, false, now, now))

	w, err := repo.GetByAccessToken(context.Background(), "token")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Nil(t, w.EventDate)
	assert.True(t, w.IsActive())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE w.id = $1 AND w.is_deleted = FALSE")).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	missing, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWishlistGetByIDIncludingDeleted(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWishlistRepository(db)
	now := time.Now()

	mock.ExpectQuery(`FROM wishlists w WHERE w\.id = \$1$`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(wishlistRowColumns).
			AddRow(int64(1), "token", int64(2), "Birthday", "", now, true, true, now, now))

	w, err := repo.GetByIDIncludingDeleted(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.True(t, w.IsDeleted)
	require.NotNil(t, w.EventDate)
}

func TestWishlistListOwnedActiveOnly(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWishlistRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE w.owner_id = $1 AND w.is_deleted = FALSE")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(wishlistRowColumns).
			AddRow(int64(1), "a", int64(2), "Birthday", "", nil, true, false, now, now).
			AddRow(int64(2), "b", int64(2), "New year", "", nil, false, false, now, now))

	lists, err := repo.ListOwned(context.Background(), 2, true)
	require.NoError(t, err)
	assert.Len(t, lists, 2)
}

func TestWishlistSoftDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWishlistRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET is_deleted = TRUE")).
		WithArgs(int64(9), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Error(t, repo.SoftDelete(context.Background(), 9))
}

func TestItemCreateIntoDeletedWishlistReturnsNil(t *testing.T) {
	db, mock := newMock(t)
	repo := NewItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO items")).
		WillReturnError(sql.ErrNoRows)

	item, err := repo.Create(context.Background(), &models.Item{WishlistID: 1, Name: "Bicycle"})
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestItemGetByIDScansPrice(t *testing.T) {
	db, mock := newMock(t)
	repo := NewItemRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM items i WHERE i.id = $1 AND EXISTS")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "wishlist_id", "name", "description", "photo_id", "price", "link", "priority", "reserved_by_id", "created_at", "updated_at"}).
			AddRow(int64(4), int64(1), "Bicycle", "", "", "199.90", "", "high", nil, now, now))

	item, err := repo.GetByID(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, item.Price)
	assert.Equal(t, "199.9", item.Price.String())
	assert.Equal(t, models.PriorityHigh, item.Priority)
	assert.False(t, item.IsReserved())
}

func TestItemReserveTaken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewItemRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("reserved_by_id IS NULL")).
		WithArgs(int64(4), int64(8), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Reserve(context.Background(), 4, 8)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscriptionUpsertBlockedByExistingRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (subscriber_id, wishlist_id) DO UPDATE")).
		WithArgs(int64(5), int64(1), int64(2), "pending", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	sub, err := repo.Upsert(context.Background(), &models.Subscription{
		SubscriberID: 5,
		WishlistID:   1,
		OwnerID:      2,
		Status:       models.SubscriptionPending,
	}, models.SubscriptionRejected)
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriptionUpdateStatusIsConditional(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $2")).
		WithArgs(int64(3), "pending", "approved", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $2")).
		WithArgs(int64(3), "pending", "rejected", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateStatus(context.Background(), 3, models.SubscriptionPending, models.SubscriptionApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(context.Background(), 3, models.SubscriptionPending, models.SubscriptionRejected)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscriptionDeleteIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subscriptions")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), 3))
}
