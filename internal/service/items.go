package service

import (
	"context"

	"github.com/Kerhoff/WishboT/internal/models"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// Lexicon keys for reservation conflicts.
const (
	KeyItemReserved    = "item_already_reserved"
	KeyItemNotReserved = "item_not_reserved_by_you"
)

func (s *Service) ownedWishlist(ctx context.Context, userID, wishlistID int64) (*models.Wishlist, error) {
	w, err := s.resolve(ctx, WishlistRef{ID: wishlistID})
	if err != nil {
		return nil, err
	}
	if w.OwnerID != userID {
		return nil, apperrors.Forbidden("wishlist belongs to another user")
	}
	return w, nil
}

func (s *Service) item(ctx context.Context, itemID int64) (*models.Item, error) {
	item, err := s.Items.GetByID(ctx, itemID)
	if err != nil {
		return nil, apperrors.Storage(err, "load item")
	}
	if item == nil {
		return nil, apperrors.NotFound("item not found")
	}
	return item, nil
}

// DeleteWishlist soft-deletes one of the user's wishlists.
func (s *Service) DeleteWishlist(ctx context.Context, userID, wishlistID int64) error {
	w, err := s.ownedWishlist(ctx, userID, wishlistID)
	if err != nil {
		return err
	}
	if err := s.Wishlists.SoftDelete(ctx, w.ID); err != nil {
		return apperrors.Storage(err, "delete wishlist")
	}
	s.logger.WithField("wishlist_id", w.ID).Info("Wishlist deleted")
	return nil
}

// DeleteItem removes an item from one of the user's wishlists and returns
// the parent wishlist ID.
func (s *Service) DeleteItem(ctx context.Context, userID, itemID int64) (int64, error) {
	item, err := s.item(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if _, err := s.ownedWishlist(ctx, userID, item.WishlistID); err != nil {
		return 0, err
	}
	if err := s.Items.Delete(ctx, item.ID); err != nil {
		return 0, apperrors.Storage(err, "delete item")
	}
	return item.WishlistID, nil
}

// reservable checks that userID sees the item's wishlist with a role that
// may reserve.
func (s *Service) reservable(ctx context.Context, userID, itemID int64) (*models.Item, error) {
	item, err := s.item(ctx, itemID)
	if err != nil {
		return nil, err
	}
	w, err := s.resolve(ctx, WishlistRef{ID: item.WishlistID})
	if err != nil {
		return nil, err
	}
	role, err := s.access.Classify(ctx, w, userID)
	if err != nil {
		return nil, err
	}
	if !role.CanViewItems() {
		return nil, apperrors.NotFound("item not found")
	}
	if !role.CanReserve() {
		return nil, apperrors.Forbidden("owners cannot reserve their own items")
	}
	return item, nil
}

// ReserveItem marks the item as promised by userID.
func (s *Service) ReserveItem(ctx context.Context, userID, itemID int64) (*models.Item, error) {
	item, err := s.reservable(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	ok, err := s.Items.Reserve(ctx, item.ID, userID)
	if err != nil {
		return nil, apperrors.Storage(err, "reserve item")
	}
	if !ok {
		return nil, apperrors.Conflict(KeyItemReserved, "item already reserved")
	}
	item.ReservedByID = &userID
	return item, nil
}

// UnreserveItem drops the user's own reservation.
func (s *Service) UnreserveItem(ctx context.Context, userID, itemID int64) (*models.Item, error) {
	item, err := s.reservable(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	ok, err := s.Items.Unreserve(ctx, item.ID, userID)
	if err != nil {
		return nil, apperrors.Storage(err, "unreserve item")
	}
	if !ok {
		return nil, apperrors.Conflict(KeyItemNotReserved, "item is not reserved by this user")
	}
	item.ReservedByID = nil
	return item, nil
}

// ItemForViewer returns one item of a wishlist the viewer may see.
func (s *Service) ItemForViewer(ctx context.Context, viewerID, itemID int64) (*models.Item, *WishlistView, error) {
	item, err := s.item(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	view, err := s.ViewWishlistByID(ctx, item.WishlistID, viewerID)
	if err != nil {
		return nil, nil, err
	}
	if view.Limited {
		return nil, nil, apperrors.NotFound("item not found")
	}
	for _, visible := range view.Items {
		if visible.ID == item.ID {
			return visible, view, nil
		}
	}
	return nil, nil, apperrors.NotFound("item not found")
}
