package repository

import (
	"context"

	"github.com/Kerhoff/WishboT/internal/models"
)

// Lookups return (nil, nil) when nothing matches. Every wishlist read applies
// the active-wishlist predicate unless its name says otherwise, and items or
// subscriptions that belong to a soft-deleted wishlist are treated as absent.

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	// Upsert inserts the user or refreshes username, first name and language
	// of the row with the same telegram ID.
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
}

// WishlistRepository defines the interface for wishlist operations
type WishlistRepository interface {
	Create(ctx context.Context, wishlist *models.Wishlist) (*models.Wishlist, error)
	Update(ctx context.Context, id int64, changes models.WishlistChanges) (*models.Wishlist, error)
	SoftDelete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Wishlist, error)
	GetByIDIncludingDeleted(ctx context.Context, id int64) (*models.Wishlist, error)
	GetByAccessToken(ctx context.Context, token string) (*models.Wishlist, error)
	ListOwned(ctx context.Context, ownerID int64, activeOnly bool) ([]*models.Wishlist, error)
	// ListSubscribed returns wishlists the user holds an approved subscription to.
	ListSubscribed(ctx context.Context, subscriberID int64, activeOnly bool) ([]*models.Wishlist, error)
	Count(ctx context.Context) (int64, error)
}

// ItemRepository defines the interface for wishlist item operations
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	Update(ctx context.Context, id int64, changes models.ItemChanges) (*models.Item, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Item, error)
	ListByWishlist(ctx context.Context, wishlistID int64) ([]*models.Item, error)
	Reserve(ctx context.Context, itemID, reservedByID int64) (bool, error)
	Unreserve(ctx context.Context, itemID, reservedByID int64) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// SubscriptionRepository defines the interface for subscription operations
type SubscriptionRepository interface {
	Get(ctx context.Context, subscriberID, wishlistID int64) (*models.Subscription, error)
	GetByID(ctx context.Context, id int64) (*models.Subscription, error)
	// Upsert inserts sub, or overwrites the status of the existing row for the
	// same (subscriber, wishlist) pair when that row's status is one of
	// replaceable. It returns (nil, nil) when a row exists whose status is not
	// replaceable. The check and the write happen atomically.
	Upsert(ctx context.Context, sub *models.Subscription, replaceable ...models.SubscriptionStatus) (*models.Subscription, error)
	// UpdateStatus moves the subscription from one status to another and
	// reports false when the row was not in the from status.
	UpdateStatus(ctx context.Context, id int64, from, to models.SubscriptionStatus) (bool, error)
	// Delete removes the row. Deleting an absent row is not an error.
	Delete(ctx context.Context, id int64) error
	CountApproved(ctx context.Context, wishlistID int64) (int64, error)
	ListByWishlist(ctx context.Context, wishlistID int64, status models.SubscriptionStatus) ([]*models.Subscription, error)
}

// Repositories bundles the stores the bot needs
type Repositories struct {
	Users         UserRepository
	Wishlists     WishlistRepository
	Items         ItemRepository
	Subscriptions SubscriptionRepository
}
