package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/access"
	"github.com/Kerhoff/WishboT/internal/draft"
	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository"
	"github.com/Kerhoff/WishboT/internal/subscription"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// KeyUnsupportedLanguage is reported when a user picks a language the bot
// has no texts for.
const KeyUnsupportedLanguage = "language_unsupported"

// Service is the central business logic layer that holds all repositories
// and provides high-level methods for the chat and HTTP front ends.
type Service struct {
	logger          *logrus.Logger
	defaultLanguage string

	Users         repository.UserRepository
	Wishlists     repository.WishlistRepository
	Items         repository.ItemRepository
	Subscriptions repository.SubscriptionRepository

	access        *access.Evaluator
	drafts        *draft.Manager
	subscriptions *subscription.Manager
}

// New creates a new Service with all required dependencies.
func New(repos *repository.Repositories, drafts *draft.Manager, subs *subscription.Manager, defaultLanguage string, logger *logrus.Logger) *Service {
	if !models.IsSupportedLanguage(defaultLanguage) {
		defaultLanguage = models.LanguageEnglish
	}
	return &Service{
		logger:          logger,
		defaultLanguage: defaultLanguage,
		Users:           repos.Users,
		Wishlists:       repos.Wishlists,
		Items:           repos.Items,
		Subscriptions:   repos.Subscriptions,
		access:          access.NewEvaluator(repos.Subscriptions),
		drafts:          drafts,
		subscriptions:   subs,
	}
}

// EnsureUser retrieves an existing user by Telegram ID, or creates a new one
// if not found. If the user already exists but their handle or first name
// has changed, it updates the record. The stored language is never touched
// here.
func (s *Service) EnsureUser(ctx context.Context, telegramID int64, username, firstName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	firstName = strings.TrimSpace(firstName)

	user, err := s.Users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, apperrors.Storage(err, fmt.Sprintf("lookup user (telegram_id=%d)", telegramID))
	}
	if user == nil {
		user, err = s.Users.Upsert(ctx, &models.User{
			TelegramID:       telegramID,
			TelegramUsername: username,
			FirstName:        firstName,
			Language:         s.defaultLanguage,
		})
		if err != nil {
			return nil, apperrors.Storage(err, fmt.Sprintf("create user (telegram_id=%d)", telegramID))
		}
		s.logger.Infof("Created new user: %s (telegram_id=%d)", user.DisplayName(), telegramID)
		return user, nil
	}

	if user.TelegramUsername == username && user.FirstName == firstName {
		return user, nil
	}

	user.TelegramUsername = username
	user.FirstName = firstName
	user, err = s.Users.Upsert(ctx, user)
	if err != nil {
		return nil, apperrors.Storage(err, fmt.Sprintf("update user (telegram_id=%d)", telegramID))
	}
	s.logger.Infof("Updated user profile: %s (telegram_id=%d)", user.DisplayName(), telegramID)

	return user, nil
}

// SetLanguage stores the preferred interface language of the user.
func (s *Service) SetLanguage(ctx context.Context, userID int64, lang string) (*models.User, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !models.IsSupportedLanguage(lang) {
		return nil, apperrors.Validation("language", KeyUnsupportedLanguage, "unsupported language")
	}

	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Language == lang {
		return user, nil
	}

	user.Language = lang
	user, err = s.Users.Upsert(ctx, user)
	if err != nil {
		return nil, apperrors.Storage(err, "update language")
	}
	return user, nil
}

// UserByID returns the user or a NotFound error.
func (s *Service) UserByID(ctx context.Context, userID int64) (*models.User, error) {
	return s.user(ctx, userID)
}

func (s *Service) user(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Storage(err, "load user")
	}
	if user == nil {
		return nil, apperrors.NotFound("user not found")
	}
	return user, nil
}

// ActiveDraft returns the chat's live draft, or nil.
func (s *Service) ActiveDraft(ctx context.Context, chatID int64) (*draft.Draft, error) {
	return s.drafts.Get(ctx, chatID)
}
