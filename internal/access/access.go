// Package access decides what a viewer may do with a wishlist.
package access

import (
	"context"

	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// Role is the relation between a viewer and a wishlist.
type Role int

const (
	NoAccess Role = iota
	PendingRequester
	ApprovedSubscriber
	PublicViewer
	Owner
)

func (r Role) String() string {
	switch r {
	case Owner:
		return "owner"
	case PublicViewer:
		return "public_viewer"
	case ApprovedSubscriber:
		return "approved_subscriber"
	case PendingRequester:
		return "pending_requester"
	default:
		return "no_access"
	}
}

// CanViewItems reports whether the viewer sees items, counts and details.
func (r Role) CanViewItems() bool {
	return r == Owner || r == PublicViewer || r == ApprovedSubscriber
}

func (r Role) CanEdit() bool {
	return r == Owner
}

func (r Role) CanRequestAccess() bool {
	return r == NoAccess
}

func (r Role) CanUnsubscribe() bool {
	return r == ApprovedSubscriber
}

// CanReserve is granted to everyone who sees the items except the owner.
func (r Role) CanReserve() bool {
	return r == PublicViewer || r == ApprovedSubscriber
}

// CanSeeReservations hides reservations from the owner.
func (r Role) CanSeeReservations() bool {
	return r.CanReserve()
}

// Classify resolves the viewer's role. sub is the viewer's subscription to
// the wishlist, or nil. The owner check wins over privacy and subscription
// state, and a public list needs no subscription at all.
func Classify(wishlist *models.Wishlist, viewerID int64, sub *models.Subscription) Role {
	switch {
	case wishlist.OwnerID == viewerID:
		return Owner
	case !wishlist.IsPrivate:
		return PublicViewer
	case sub.IsApproved():
		return ApprovedSubscriber
	case sub.IsPending():
		return PendingRequester
	default:
		return NoAccess
	}
}

// Evaluator classifies viewers, loading subscriptions only when the result
// depends on them.
type Evaluator struct {
	subscriptions repository.SubscriptionRepository
}

func NewEvaluator(subscriptions repository.SubscriptionRepository) *Evaluator {
	return &Evaluator{subscriptions: subscriptions}
}

// Classify returns NotFound for a missing or soft-deleted wishlist so callers
// never confuse it with NoAccess.
func (e *Evaluator) Classify(ctx context.Context, wishlist *models.Wishlist, viewerID int64) (Role, error) {
	if !wishlist.IsActive() {
		return NoAccess, apperrors.NotFound("wishlist not found")
	}
	if wishlist.OwnerID == viewerID || !wishlist.IsPrivate || viewerID == 0 {
		return Classify(wishlist, viewerID, nil), nil
	}

	sub, err := e.subscriptions.Get(ctx, viewerID, wishlist.ID)
	if err != nil {
		return NoAccess, apperrors.Storage(err, "load subscription")
	}
	return Classify(wishlist, viewerID, sub), nil
}
