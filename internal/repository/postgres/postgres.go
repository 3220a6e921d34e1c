package postgres

import (
	"database/sql"

	"github.com/Kerhoff/WishboT/internal/repository"
)

// New bundles every postgres repository around one connection pool.
func New(db *sql.DB) *repository.Repositories {
	return &repository.Repositories{
		Users:         NewUserRepository(db),
		Wishlists:     NewWishlistRepository(db),
		Items:         NewItemRepository(db),
		Subscriptions: NewSubscriptionRepository(db),
	}
}
