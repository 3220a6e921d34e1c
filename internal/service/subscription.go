package service

import (
	"context"

	"github.com/Kerhoff/WishboT/internal/models"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// SubscriptionActionType names a subscription lifecycle step.
type SubscriptionActionType string

const (
	ActionRequestAccess   SubscriptionActionType = "request"
	ActionApprove         SubscriptionActionType = "approve"
	ActionReject          SubscriptionActionType = "reject"
	ActionUnsubscribe     SubscriptionActionType = "unsubscribe"
	ActionRevoke          SubscriptionActionType = "revoke"
	ActionListPending     SubscriptionActionType = "list_pending"
	ActionListSubscribers SubscriptionActionType = "list_subscribers"
)

// SubscriptionRequest carries one lifecycle step. Request, unsubscribe and
// the list actions use WishlistID; approve, reject and revoke use
// SubscriptionID.
type SubscriptionRequest struct {
	UserID         int64
	Action         SubscriptionActionType
	WishlistID     int64
	SubscriptionID int64
}

type SubscriptionResult struct {
	Subscription *models.Subscription
	// Notification must be delivered by the caller when set.
	Notification  *models.Notification
	Subscriptions []*models.Subscription
}

// SubscriptionAction runs req through the subscription lifecycle.
func (s *Service) SubscriptionAction(ctx context.Context, req SubscriptionRequest) (*SubscriptionResult, error) {
	switch req.Action {
	case ActionRequestAccess:
		sub, note, err := s.subscriptions.RequestAccess(ctx, req.UserID, req.WishlistID)
		if err != nil {
			return nil, err
		}
		return &SubscriptionResult{Subscription: sub, Notification: note}, nil

	case ActionApprove:
		sub, note, err := s.subscriptions.Approve(ctx, req.UserID, req.SubscriptionID)
		if err != nil {
			return nil, err
		}
		return &SubscriptionResult{Subscription: sub, Notification: note}, nil

	case ActionReject:
		sub, note, err := s.subscriptions.Reject(ctx, req.UserID, req.SubscriptionID)
		if err != nil {
			return nil, err
		}
		return &SubscriptionResult{Subscription: sub, Notification: note}, nil

	case ActionUnsubscribe:
		if err := s.subscriptions.Unsubscribe(ctx, req.UserID, req.WishlistID); err != nil {
			return nil, err
		}
		return &SubscriptionResult{}, nil

	case ActionRevoke:
		note, err := s.subscriptions.Revoke(ctx, req.UserID, req.SubscriptionID)
		if err != nil {
			return nil, err
		}
		return &SubscriptionResult{Notification: note}, nil

	case ActionListPending:
		subs, err := s.subscriptions.ListPending(ctx, req.UserID, req.WishlistID)
		if err != nil {
			return nil, err
		}
		return &SubscriptionResult{Subscriptions: subs}, nil

	case ActionListSubscribers:
		subs, err := s.subscriptions.ListSubscribers(ctx, req.UserID, req.WishlistID)
		if err != nil {
			return nil, err
		}
		return &SubscriptionResult{Subscriptions: subs}, nil
	}

	return nil, apperrors.New(apperrors.CodeInvalidTransition, "unknown subscription action")
}
