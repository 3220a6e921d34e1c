package models

import "time"

// Wishlist length limits
const (
	WishlistTitleMin       = 4
	WishlistTitleMax       = 50
	WishlistDescriptionMax = 300
)

// Wishlist represents a gift list owned by a single user. Lists are shared by
// AccessToken, never by numeric ID.
type Wishlist struct {
	ID          int64      `json:"id" db:"id"`
	AccessToken string     `json:"access_token" db:"access_token"`
	OwnerID     int64      `json:"owner_id" db:"owner_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	EventDate   *time.Time `json:"event_date" db:"event_date"`
	IsPrivate   bool       `json:"is_private" db:"is_private"`
	IsDeleted   bool       `json:"is_deleted" db:"is_deleted"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	Owner       *User      `json:"owner,omitempty"`
}

// IsActive returns true unless the wishlist was soft-deleted
func (w *Wishlist) IsActive() bool {
	return w != nil && !w.IsDeleted
}

// WishlistChanges carries the editable fields of a wishlist update
type WishlistChanges struct {
	Title       string
	Description string
	EventDate   *time.Time
	IsPrivate   bool
}

// Apply copies the changes onto w
func (c WishlistChanges) Apply(w *Wishlist) {
	w.Title = c.Title
	w.Description = c.Description
	w.EventDate = c.EventDate
	w.IsPrivate = c.IsPrivate
}
