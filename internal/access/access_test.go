package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository/memory"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

func TestClassifyPrecedence(t *testing.T) {
	private := &models.Wishlist{ID: 1, OwnerID: 10, IsPrivate: true}
	public := &models.Wishlist{ID: 2, OwnerID: 10}
	approved := &models.Subscription{Status: models.SubscriptionApproved}
	pending := &models.Subscription{Status: models.SubscriptionPending}
	rejected := &models.Subscription{Status: models.SubscriptionRejected}

	tests := []struct {
		name     string
		wishlist *models.Wishlist
		viewer   int64
		sub      *models.Subscription
		want     Role
	}{
		{"owner of private list", private, 10, nil, Owner},
		{"owner with stray subscription", private, 10, pending, Owner},
		{"public list without subscription", public, 20, nil, PublicViewer},
		{"public list with rejected request", public, 20, rejected, PublicViewer},
		{"approved subscriber", private, 20, approved, ApprovedSubscriber},
		{"pending requester", private, 20, pending, PendingRequester},
		{"rejected requester", private, 20, rejected, NoAccess},
		{"stranger", private, 20, nil, NoAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.wishlist, tt.viewer, tt.sub))
		})
	}
}

func TestRoleAffordances(t *testing.T) {
	assert.True(t, Owner.CanEdit())
	assert.True(t, Owner.CanViewItems())
	assert.False(t, Owner.CanSeeReservations())
	assert.False(t, Owner.CanRequestAccess())

	assert.True(t, PublicViewer.CanViewItems())
	assert.True(t, PublicViewer.CanReserve())
	assert.False(t, PublicViewer.CanEdit())

	assert.True(t, ApprovedSubscriber.CanUnsubscribe())
	assert.True(t, ApprovedSubscriber.CanSeeReservations())

	assert.False(t, PendingRequester.CanViewItems())
	assert.False(t, PendingRequester.CanRequestAccess())

	assert.False(t, NoAccess.CanViewItems())
	assert.True(t, NoAccess.CanRequestAccess())
	assert.Equal(t, "no_access", NoAccess.String())
}

func TestEvaluatorLoadsSubscription(t *testing.T) {
	repos := memory.New()
	ctx := context.Background()
	evaluator := NewEvaluator(repos.Subscriptions)

	w, err := repos.Wishlists.Create(ctx, &models.Wishlist{OwnerID: 10, Title: "Birthday", IsPrivate: true})
	require.NoError(t, err)

	role, err := evaluator.Classify(ctx, w, 20)
	require.NoError(t, err)
	assert.Equal(t, NoAccess, role)

	_, err = repos.Subscriptions.Upsert(ctx, &models.Subscription{SubscriberID: 20, WishlistID: w.ID, OwnerID: 10, Status: models.SubscriptionApproved})
	require.NoError(t, err)

	role, err = evaluator.Classify(ctx, w, 20)
	require.NoError(t, err)
	assert.Equal(t, ApprovedSubscriber, role)
}

func TestEvaluatorRejectsDeletedWishlist(t *testing.T) {
	evaluator := NewEvaluator(memory.New().Subscriptions)

	_, err := evaluator.Classify(context.Background(), &models.Wishlist{OwnerID: 10, IsDeleted: true}, 10)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = evaluator.Classify(context.Background(), nil, 10)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}
