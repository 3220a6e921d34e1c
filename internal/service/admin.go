package service

import (
	"context"
	"strings"

	"github.com/Kerhoff/WishboT/internal/models"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// KeyBroadcastEmpty is reported for a newsletter without text.
const KeyBroadcastEmpty = "broadcast_empty"

// Stats are the counters shown on the admin panel.
type Stats struct {
	Users     int64
	Wishlists int64
	Items     int64
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.Users.Count(ctx)
	if err != nil {
		return nil, apperrors.Storage(err, "count users")
	}
	wishlists, err := s.Wishlists.Count(ctx)
	if err != nil {
		return nil, apperrors.Storage(err, "count wishlists")
	}
	items, err := s.Items.Count(ctx)
	if err != nil {
		return nil, apperrors.Storage(err, "count items")
	}
	return &Stats{Users: users, Wishlists: wishlists, Items: items}, nil
}

// Broadcast builds one newsletter notification per known user.
func (s *Service) Broadcast(ctx context.Context, text string) ([]models.Notification, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("text", KeyBroadcastEmpty, "broadcast text is empty")
	}

	ids, err := s.Users.ListIDs(ctx)
	if err != nil {
		return nil, apperrors.Storage(err, "list users")
	}

	notes := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		notes = append(notes, models.Notification{
			RecipientID: id,
			TemplateKey: models.NotifyBroadcast,
			Params:      map[string]string{"text": text},
		})
	}
	s.logger.WithField("recipients", len(notes)).Info("Broadcast prepared")
	return notes, nil
}
