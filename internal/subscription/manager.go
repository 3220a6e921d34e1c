// Package subscription runs the access-request lifecycle between wishlist
// owners and the users who want to see their lists. Every ownership check for
// approve, reject, revoke and listing happens here and nowhere else.
package subscription

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/metrics"
	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// Lexicon keys of the specific conflicts the manager reports.
const (
	KeyOwnWishlist       = "subscribe_own_wishlist"
	KeyAlreadySubscribed = "already_subscribed"
	KeyAlreadyPending    = "already_pending"
	KeyNotPending        = "request_not_pending"
	KeyNotSubscribed     = "not_subscribed"
)

// Transition labels reported to metrics.
const (
	transitionRequested    = "requested"
	transitionAutoApproved = "auto_approved"
	transitionApproved     = "approved"
	transitionRejected     = "rejected"
	transitionUnsubscribed = "unsubscribed"
	transitionRevoked      = "revoked"
)

type Manager struct {
	users         repository.UserRepository
	wishlists     repository.WishlistRepository
	subscriptions repository.SubscriptionRepository
	metrics       *metrics.Metrics
	logger        *logrus.Logger
	now           func() time.Time
}

func NewManager(repos *repository.Repositories, m *metrics.Metrics, logger *logrus.Logger) *Manager {
	return &Manager{
		users:         repos.Users,
		wishlists:     repos.Wishlists,
		subscriptions: repos.Subscriptions,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

func (m *Manager) activeWishlist(ctx context.Context, id int64) (*models.Wishlist, error) {
	w, err := m.wishlists.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Storage(err, "load wishlist")
	}
	if w == nil {
		return nil, apperrors.NotFound("wishlist not found")
	}
	return w, nil
}

// ownedSubscription loads a subscription together with its wishlist and
// verifies that ownerID owns that wishlist.
func (m *Manager) ownedSubscription(ctx context.Context, ownerID, subscriptionID int64) (*models.Subscription, *models.Wishlist, error) {
	sub, err := m.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, nil, apperrors.Storage(err, "load subscription")
	}
	if sub == nil {
		return nil, nil, apperrors.NotFound("subscription not found")
	}
	w, err := m.activeWishlist(ctx, sub.WishlistID)
	if err != nil {
		return nil, nil, err
	}
	if w.OwnerID != ownerID {
		return nil, nil, apperrors.Forbidden("only the owner can manage subscribers")
	}
	return sub, w, nil
}

func (m *Manager) displayName(ctx context.Context, userID int64) string {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		m.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load user for notification")
	}
	if user == nil {
		return ""
	}
	return user.DisplayName()
}

// RequestAccess subscribes to a public wishlist right away, or files a
// pending request for a private one and returns the notification for its
// owner.
func (m *Manager) RequestAccess(ctx context.Context, subscriberID, wishlistID int64) (*models.Subscription, *models.Notification, error) {
	w, err := m.activeWishlist(ctx, wishlistID)
	if err != nil {
		return nil, nil, err
	}
	if w.OwnerID == subscriberID {
		return nil, nil, apperrors.Validation("wishlist", KeyOwnWishlist, "cannot subscribe to own wishlist")
	}

	if !w.IsPrivate {
		now := m.now()
		sub, err := m.subscriptions.Upsert(ctx, &models.Subscription{
			SubscriberID: subscriberID,
			WishlistID:   w.ID,
			OwnerID:      w.OwnerID,
			Status:       models.SubscriptionApproved,
			RespondedAt:  &now,
		}, models.SubscriptionPending, models.SubscriptionApproved, models.SubscriptionRejected)
		if err != nil {
			return nil, nil, apperrors.Storage(err, "subscribe to public wishlist")
		}
		if sub == nil {
			return nil, nil, apperrors.Storage(nil, "public subscription was not stored")
		}
		m.metrics.IncSubscriptionTransition(transitionAutoApproved)
		return sub, nil, nil
	}

	sub, err := m.subscriptions.Upsert(ctx, &models.Subscription{
		SubscriberID: subscriberID,
		WishlistID:   w.ID,
		OwnerID:      w.OwnerID,
		Status:       models.SubscriptionPending,
	}, models.SubscriptionRejected)
	if err != nil {
		return nil, nil, apperrors.Storage(err, "file access request")
	}
	if sub == nil {
		existing, err := m.subscriptions.Get(ctx, subscriberID, w.ID)
		if err != nil {
			return nil, nil, apperrors.Storage(err, "load subscription")
		}
		if existing.IsApproved() {
			return nil, nil, apperrors.Conflict(KeyAlreadySubscribed, "already subscribed")
		}
		return nil, nil, apperrors.Conflict(KeyAlreadyPending, "request already pending")
	}

	m.metrics.IncSubscriptionTransition(transitionRequested)
	m.logger.WithFields(logrus.Fields{
		"subscription_id": sub.ID,
		"wishlist_id":     w.ID,
		"subscriber_id":   subscriberID,
	}).Debug("Access requested")

	return sub, &models.Notification{
		RecipientID: w.OwnerID,
		TemplateKey: models.NotifyAccessRequested,
		Params: map[string]string{
			"subscriber": m.displayName(ctx, subscriberID),
			"wishlist":   w.Title,
		},
		SubscriptionID: sub.ID,
		WishlistID:     w.ID,
	}, nil
}

func (m *Manager) Approve(ctx context.Context, ownerID, subscriptionID int64) (*models.Subscription, *models.Notification, error) {
	return m.respond(ctx, ownerID, subscriptionID, models.SubscriptionApproved, models.NotifyAccessApproved, transitionApproved)
}

func (m *Manager) Reject(ctx context.Context, ownerID, subscriptionID int64) (*models.Subscription, *models.Notification, error) {
	return m.respond(ctx, ownerID, subscriptionID, models.SubscriptionRejected, models.NotifyAccessRejected, transitionRejected)
}

func (m *Manager) respond(ctx context.Context, ownerID, subscriptionID int64, to models.SubscriptionStatus, template, transition string) (*models.Subscription, *models.Notification, error) {
	sub, w, err := m.ownedSubscription(ctx, ownerID, subscriptionID)
	if err != nil {
		return nil, nil, err
	}

	ok, err := m.subscriptions.UpdateStatus(ctx, sub.ID, models.SubscriptionPending, to)
	if err != nil {
		return nil, nil, apperrors.Storage(err, "update subscription status")
	}
	if !ok {
		return nil, nil, apperrors.Conflict(KeyNotPending, "request is no longer pending")
	}

	now := m.now()
	sub.Status = to
	sub.RespondedAt = &now
	m.metrics.IncSubscriptionTransition(transition)

	return sub, &models.Notification{
		RecipientID: sub.SubscriberID,
		TemplateKey: template,
		Params: map[string]string{
			"owner":    m.displayName(ctx, ownerID),
			"wishlist": w.Title,
		},
		SubscriptionID: sub.ID,
		WishlistID:     w.ID,
	}, nil
}

// Unsubscribe removes the caller's own subscription or pending request.
func (m *Manager) Unsubscribe(ctx context.Context, subscriberID, wishlistID int64) error {
	sub, err := m.subscriptions.Get(ctx, subscriberID, wishlistID)
	if err != nil {
		return apperrors.Storage(err, "load subscription")
	}
	if sub == nil || sub.Status == models.SubscriptionRejected {
		return apperrors.NotFound("not subscribed").WithKey(KeyNotSubscribed)
	}
	if err := m.subscriptions.Delete(ctx, sub.ID); err != nil {
		return apperrors.Storage(err, "delete subscription")
	}
	m.metrics.IncSubscriptionTransition(transitionUnsubscribed)
	return nil
}

// Revoke lets the owner drop an approved subscriber.
func (m *Manager) Revoke(ctx context.Context, ownerID, subscriptionID int64) (*models.Notification, error) {
	sub, w, err := m.ownedSubscription(ctx, ownerID, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.IsApproved() {
		return nil, apperrors.Conflict(KeyNotSubscribed, "subscription is not approved")
	}
	if err := m.subscriptions.Delete(ctx, sub.ID); err != nil {
		return nil, apperrors.Storage(err, "delete subscription")
	}
	m.metrics.IncSubscriptionTransition(transitionRevoked)

	return &models.Notification{
		RecipientID: sub.SubscriberID,
		TemplateKey: models.NotifyAccessRevoked,
		Params: map[string]string{
			"owner":    m.displayName(ctx, ownerID),
			"wishlist": w.Title,
		},
		WishlistID: w.ID,
	}, nil
}

func (m *Manager) ListPending(ctx context.Context, ownerID, wishlistID int64) ([]*models.Subscription, error) {
	return m.list(ctx, ownerID, wishlistID, models.SubscriptionPending)
}

func (m *Manager) ListSubscribers(ctx context.Context, ownerID, wishlistID int64) ([]*models.Subscription, error) {
	return m.list(ctx, ownerID, wishlistID, models.SubscriptionApproved)
}

func (m *Manager) list(ctx context.Context, ownerID, wishlistID int64, status models.SubscriptionStatus) ([]*models.Subscription, error) {
	w, err := m.activeWishlist(ctx, wishlistID)
	if err != nil {
		return nil, err
	}
	if w.OwnerID != ownerID {
		return nil, apperrors.Forbidden("only the owner can list subscribers")
	}
	subs, err := m.subscriptions.ListByWishlist(ctx, w.ID, status)
	if err != nil {
		return nil, apperrors.Storage(err, "list subscriptions")
	}
	return subs, nil
}
