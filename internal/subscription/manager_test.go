package subscription

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository"
	"github.com/Kerhoff/WishboT/internal/repository/memory"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

type fixture struct {
	repos   *repository.Repositories
	manager *Manager
	owner   *models.User
	friend  *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repos := memory.New()
	ctx := context.Background()
	owner, err := repos.Users.Upsert(ctx, &models.User{TelegramID: 100, TelegramUsername: "owner"})
	require.NoError(t, err)
	friend, err := repos.Users.Upsert(ctx, &models.User{TelegramID: 200, TelegramUsername: "friend"})
	require.NoError(t, err)

	return &fixture{
		repos:   repos,
		manager: NewManager(repos, nil, logger),
		owner:   owner,
		friend:  friend,
	}
}

func (f *fixture) wishlist(t *testing.T, private bool) *models.Wishlist {
	t.Helper()
	w, err := f.repos.Wishlists.Create(context.Background(), &models.Wishlist{
		OwnerID:   f.owner.ID,
		Title:     "Birthday 2025",
		IsPrivate: private,
	})
	require.NoError(t, err)
	return w
}

func TestRequestAccessToPublicWishlistIsImmediate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.wishlist(t, false)

	sub, note, err := f.manager.RequestAccess(ctx, f.friend.ID, w.ID)
	require.NoError(t, err)
	assert.Nil(t, note)
	assert.Equal(t, models.SubscriptionApproved, sub.Status)

	again, note, err := f.manager.RequestAccess(ctx, f.friend.ID, w.ID)
	require.NoError(t, err)
	assert.Nil(t, note)
	assert.Equal(t, sub.ID, again.ID)

	count, err := f.repos.Subscriptions.CountApproved(ctx, w.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestPrivateRequestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.wishlist(t, true)

	sub, note, err := f.manager.RequestAccess(ctx, f.friend.ID, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPending, sub.Status)
	require.NotNil(t, note)
	assert.Equal(t, f.owner.ID, note.RecipientID)
	assert.Equal(t, models.NotifyAccessRequested, note.TemplateKey)
	assert.Equal(t, "@friend", note.Params["subscriber"])
	assert.Equal(t, "Birthday 2025", note.Params["wishlist"])
	assert.Equal(t, sub.ID, note.SubscriptionID)

	_, _, err = f.manager.RequestAccess(ctx, f.friend.ID, w.ID)
	requireKey(t, err, apperrors.CodeConflict, KeyAlreadyPending)

	pending, err := f.manager.ListPending(ctx, f.owner.ID, w.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, note, err := f.manager.Approve(ctx, f.owner.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionApproved, approved.Status)
	assert.NotNil(t, approved.RespondedAt)
	assert.Equal(t, f.friend.ID, note.RecipientID)
	assert.Equal(t, models.NotifyAccessApproved, note.TemplateKey)

	_, _, err = f.manager.RequestAccess(ctx, f.friend.ID, w.ID)
	requireKey(t, err, apperrors.CodeConflict, KeyAlreadySubscribed)

	_, _, err = f.manager.Approve(ctx, f.owner.ID, sub.ID)
	requireKey(t, err, apperrors.CodeConflict, KeyNotPending)

	subscribed, err := f.repos.Wishlists.ListSubscribed(ctx, f.friend.ID, true)
	require.NoError(t, err)
	assert.Len(t, subscribed, 1)
}

func TestRejectedRequesterMayAskAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.wishlist(t, true)

	sub, _, err := f.manager.RequestAccess(ctx, f.friend.ID, w.ID)
	require.NoError(t, err)

	rejected, note, err := f.manager.Reject(ctx, f.owner.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionRejected, rejected.Status)
	assert.Equal(t, models.NotifyAccessRejected, note.TemplateKey)

	again, note, err := f.manager.RequestAccess(ctx, f.friend.ID, w.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
	assert.Equal(t, models.SubscriptionPending, again.Status)
	assert.NotNil(t, note)

	err = f.manager.Unsubscribe(ctx, f.friend.ID, w.ID)
	require.NoError(t, err)
}

func TestOwnerCannotRequestOwnWishlist(t *testing.T) {
	f := newFixture(t)
	w := f.wishlist(t, true)

	_, _, err := f.manager.RequestAccess(context.Background(), f.owner.ID, w.ID)
	requireKey(t, err, apperrors.CodeValidation, KeyOwnWishlist)
}

func TestOnlyOwnerManagesSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.wishlist(t, true)

	sub, _, err := f.manager.RequestAccess(ctx, f.friend.ID, w.ID)
	require.NoError(t, err)

	_, _, err = f.manager.Approve(ctx, f.friend.ID, sub.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, _, err = f.manager.Reject(ctx, f.friend.ID, sub.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, err = f.manager.Revoke(ctx, f.friend.ID, sub.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, err = f.manager.ListPending(ctx, f.friend.ID, w.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, _, err = f.manager.Approve(ctx, f.owner.ID, sub.ID+100)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestUnsubscribeWithoutSubscription(t *testing.T) {
	f := newFixture(t)
	w := f.wishlist(t, false)

	err := f.manager.Unsubscribe(context.Background(), f.friend.ID, w.ID)
	requireKey(t, err, apperrors.CodeNotFound, KeyNotSubscribed)
}

func TestRevokeRemovesApprovedSubscriber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.wishlist(t, true)

	sub, _, err := f.manager.RequestAccess(ctx, f.friend.ID, w.ID)
	require.NoError(t, err)

	_, err = f.manager.Revoke(ctx, f.owner.ID, sub.ID)
	requireKey(t, err, apperrors.CodeConflict, KeyNotSubscribed)

	_, _, err = f.manager.Approve(ctx, f.owner.ID, sub.ID)
	require.NoError(t, err)

	subscribers, err := f.manager.ListSubscribers(ctx, f.owner.ID, w.ID)
	require.NoError(t, err)
	require.Len(t, subscribers, 1)

	note, err := f.manager.Revoke(ctx, f.owner.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotifyAccessRevoked, note.TemplateKey)
	assert.Equal(t, f.friend.ID, note.RecipientID)

	got, err := f.repos.Subscriptions.Get(ctx, f.friend.ID, w.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeletedWishlistIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.wishlist(t, true)
	require.NoError(t, f.repos.Wishlists.SoftDelete(ctx, w.ID))

	_, _, err := f.manager.RequestAccess(ctx, f.friend.ID, w.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestConcurrentRequestsNotifyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.wishlist(t, true)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		notes int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, note, err := f.manager.RequestAccess(ctx, f.friend.ID, w.ID)
			if err != nil {
				assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
				return
			}
			if note != nil {
				mu.Lock()
				notes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, notes)
	pending, err := f.manager.ListPending(ctx, f.owner.ID, w.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func requireKey(t *testing.T, err error, code apperrors.Code, key string) {
	t.Helper()
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
	assert.Equal(t, key, typed.Key())
}
