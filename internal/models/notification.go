package models

// Notification template keys
const (
	NotifyAccessRequested = "notify_access_requested"
	NotifyAccessApproved  = "notify_access_approved"
	NotifyAccessRejected  = "notify_access_rejected"
	NotifyAccessRevoked   = "notify_access_revoked"
	NotifyBroadcast       = "notify_broadcast"
)

// Notification is a request to tell a user something out of band. The core
// only produces them; delivery belongs to the messaging layer.
type Notification struct {
	RecipientID int64             `json:"recipient_id"`
	TemplateKey string            `json:"template_key"`
	Params      map[string]string `json:"params"`
	// SubscriptionID lets the messaging layer attach approve/reject buttons.
	SubscriptionID int64 `json:"subscription_id,omitempty"`
	WishlistID     int64 `json:"wishlist_id,omitempty"`
}
