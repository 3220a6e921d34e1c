package models

import "time"

// SubscriptionStatus is the state of a viewer's access request
type SubscriptionStatus string

const (
	SubscriptionPending  SubscriptionStatus = "pending"
	SubscriptionApproved SubscriptionStatus = "approved"
	SubscriptionRejected SubscriptionStatus = "rejected"
)

// Subscription links a subscriber to somebody else's wishlist. There is at
// most one row per (SubscriberID, WishlistID).
type Subscription struct {
	ID           int64              `json:"id" db:"id"`
	SubscriberID int64              `json:"subscriber_id" db:"subscriber_id"`
	WishlistID   int64              `json:"wishlist_id" db:"wishlist_id"`
	OwnerID      int64              `json:"owner_id" db:"owner_id"`
	Status       SubscriptionStatus `json:"status" db:"status"`
	RespondedAt  *time.Time         `json:"responded_at" db:"responded_at"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
}

// IsPending returns true while the owner has not answered
func (s *Subscription) IsPending() bool {
	return s != nil && s.Status == SubscriptionPending
}

// IsApproved returns true if the subscriber may see the items
func (s *Subscription) IsApproved() bool {
	return s != nil && s.Status == SubscriptionApproved
}
