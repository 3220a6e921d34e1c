package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Kerhoff/WishboT/internal/access"
	"github.com/Kerhoff/WishboT/internal/models"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

const accessTokenLength = 36

// WishlistRef points at a wishlist either by numeric ID or by access token.
type WishlistRef struct {
	ID    int64
	Token string
}

// ParseWishlistRef accepts a positive numeric ID or a 36-character UUID
// access token. Anything else is reported as NotFound.
func ParseWishlistRef(raw string) (WishlistRef, error) {
	raw = strings.TrimSpace(raw)

	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if id <= 0 {
			return WishlistRef{}, apperrors.NotFound("wishlist not found")
		}
		return WishlistRef{ID: id}, nil
	}

	token, err := ParseAccessToken(raw)
	if err != nil {
		return WishlistRef{}, err
	}
	return WishlistRef{Token: token}, nil
}

// ParseAccessToken accepts only the 36-character UUID form of an access
// token and returns it lower-cased. Numeric IDs are NotFound here.
func ParseAccessToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != accessTokenLength {
		return "", apperrors.NotFound("wishlist not found")
	}
	token, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NotFound("wishlist not found")
	}
	return token.String(), nil
}

// WishlistView is everything a viewer is allowed to see about a wishlist.
// Limited views carry only the title, owner and privacy flag.
type WishlistView struct {
	Wishlist *models.Wishlist
	Role     access.Role
	Limited  bool
	Items    []*models.Item
	// SubscriberCount and PendingCount are filled for the owner only.
	SubscriberCount int64
	PendingCount    int
	// Subscription is the viewer's own subscription, if any.
	Subscription *models.Subscription
}

func (s *Service) resolve(ctx context.Context, ref WishlistRef) (*models.Wishlist, error) {
	var (
		w   *models.Wishlist
		err error
	)
	if ref.Token != "" {
		w, err = s.Wishlists.GetByAccessToken(ctx, ref.Token)
	} else {
		w, err = s.Wishlists.GetByID(ctx, ref.ID)
	}
	if err != nil {
		return nil, apperrors.Storage(err, "load wishlist")
	}
	if w == nil {
		return nil, apperrors.NotFound("wishlist not found")
	}
	return w, nil
}

// ViewWishlist resolves ref and builds the view for viewerID. A zero viewer
// is an anonymous visitor.
func (s *Service) ViewWishlist(ctx context.Context, ref string, viewerID int64) (*WishlistView, error) {
	parsed, err := ParseWishlistRef(ref)
	if err != nil {
		return nil, err
	}
	w, err := s.resolve(ctx, parsed)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, w, viewerID)
}

// ViewWishlistByToken resolves an access token only. Shared links go
// through here so wishlists cannot be walked by ID.
func (s *Service) ViewWishlistByToken(ctx context.Context, token string, viewerID int64) (*WishlistView, error) {
	parsed, err := ParseAccessToken(token)
	if err != nil {
		return nil, err
	}
	w, err := s.resolve(ctx, WishlistRef{Token: parsed})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, w, viewerID)
}

// ViewWishlistByID is the button path of ViewWishlist.
func (s *Service) ViewWishlistByID(ctx context.Context, wishlistID, viewerID int64) (*WishlistView, error) {
	w, err := s.resolve(ctx, WishlistRef{ID: wishlistID})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, w, viewerID)
}

func (s *Service) view(ctx context.Context, w *models.Wishlist, viewerID int64) (*WishlistView, error) {
	role, err := s.access.Classify(ctx, w, viewerID)
	if err != nil {
		return nil, err
	}

	owner, err := s.Users.GetByID(ctx, w.OwnerID)
	if err != nil {
		return nil, apperrors.Storage(err, "load owner")
	}
	w.Owner = owner

	view := &WishlistView{Wishlist: w, Role: role}

	if viewerID != 0 && role != access.Owner {
		sub, err := s.Subscriptions.Get(ctx, viewerID, w.ID)
		if err != nil {
			return nil, apperrors.Storage(err, "load subscription")
		}
		view.Subscription = sub
	}

	if !role.CanViewItems() {
		view.Limited = true
		view.Wishlist = &models.Wishlist{
			ID:        w.ID,
			OwnerID:   w.OwnerID,
			Title:     w.Title,
			IsPrivate: w.IsPrivate,
			Owner:     owner,
		}
		return view, nil
	}

	items, err := s.Items.ListByWishlist(ctx, w.ID)
	if err != nil {
		return nil, apperrors.Storage(err, "list items")
	}
	if !role.CanSeeReservations() {
		for _, item := range items {
			item.ReservedByID = nil
		}
	}
	view.Items = items

	if role == access.Owner {
		count, err := s.Subscriptions.CountApproved(ctx, w.ID)
		if err != nil {
			return nil, apperrors.Storage(err, "count subscribers")
		}
		pending, err := s.Subscriptions.ListByWishlist(ctx, w.ID, models.SubscriptionPending)
		if err != nil {
			return nil, apperrors.Storage(err, "list pending requests")
		}
		view.SubscriberCount = count
		view.PendingCount = len(pending)
	}

	return view, nil
}

// ListOwned returns the user's active wishlists, newest first.
func (s *Service) ListOwned(ctx context.Context, userID int64) ([]*models.Wishlist, error) {
	lists, err := s.Wishlists.ListOwned(ctx, userID, true)
	if err != nil {
		return nil, apperrors.Storage(err, "list owned wishlists")
	}
	return lists, nil
}

// ListSubscribed returns the active wishlists the user is approved for.
func (s *Service) ListSubscribed(ctx context.Context, userID int64) ([]*models.Wishlist, error) {
	lists, err := s.Wishlists.ListSubscribed(ctx, userID, true)
	if err != nil {
		return nil, apperrors.Storage(err, "list subscribed wishlists")
	}
	return lists, nil
}
