package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/draft"
	"github.com/Kerhoff/WishboT/internal/lexicon"
	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/service"
	"github.com/Kerhoff/WishboT/internal/telegram"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// Notifier queues messages for other users.
type Notifier interface {
	Notify(notes ...models.Notification)
}

// Deps are shared by every handler.
type Deps struct {
	Service         *service.Service
	Lexicon         *lexicon.Lexicon
	Notifier        Notifier
	AdminIDs        []int64
	BotUsername     string
	DefaultLanguage string
	Logger          *logrus.Logger
}

type base struct {
	svc             *service.Service
	lex             *lexicon.Lexicon
	notifier        Notifier
	botUsername     string
	defaultLanguage string
	logger          *logrus.Logger
}

func newBase(d Deps) base {
	lang := d.DefaultLanguage
	if !models.IsSupportedLanguage(lang) {
		lang = models.LanguageEnglish
	}
	return base{
		svc:             d.Service,
		lex:             d.Lexicon,
		notifier:        d.Notifier,
		botUsername:     d.BotUsername,
		defaultLanguage: lang,
		logger:          d.Logger,
	}
}

func (b base) ensureUser(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	return b.svc.EnsureUser(ctx, from.ID, from.UserName, from.FirstName)
}

func (b base) lang(user *models.User) string {
	if user == nil || user.Language == "" {
		return b.defaultLanguage
	}
	return user.Language
}

func (b base) t(user *models.User, key string, params ...lexicon.Params) string {
	return b.lex.T(b.lang(user), key, params...)
}

func (b base) notify(notes ...*models.Notification) {
	for _, n := range notes {
		if n != nil && b.notifier != nil {
			b.notifier.Notify(*n)
		}
	}
}

// send posts an HTML message. markup may be nil.
func (b base) send(bot telegram.Sender, chatID int64, text string, markup any) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// show replaces the text of the message a button was pressed on, or sends a
// new message when that is not possible.
func (b base) show(bot telegram.Sender, query *tgbotapi.CallbackQuery, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	if query.Message != nil && query.Message.Chat != nil && len(query.Message.Photo) == 0 {
		edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.DisableWebPagePreview = true
		edit.ReplyMarkup = markup
		if _, err := bot.Send(edit); err == nil || isNotModified(err) {
			return nil
		}
	}
	var m any
	if markup != nil {
		m = *markup
	}
	_, err := b.send(bot, callbackChat(query), text, m)
	return err
}

func (b base) deleteMessage(bot telegram.Sender, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id":    chatID,
			"message_id": messageID,
		}).Debug("Failed to delete message")
	}
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

func callbackChat(query *tgbotapi.CallbackQuery) int64 {
	if query.Message != nil && query.Message.Chat != nil {
		return query.Message.Chat.ID
	}
	return query.From.ID
}

// ErrorReporter answers failed updates with the lexicon text of the error.
type ErrorReporter struct {
	base
}

func NewErrorReporter(d Deps) *ErrorReporter {
	return &ErrorReporter{base: newBase(d)}
}

func (r *ErrorReporter) HandleError(bot telegram.Sender, chatID int64, from *tgbotapi.User, err error) {
	code := apperrors.CodeOf(err)
	key := apperrors.MetadataFor(code).LexiconKey
	if typed := apperrors.As(err); typed != nil {
		key = typed.Key()
	}

	entry := r.logger.WithError(err).WithFields(logrus.Fields{
		"chat_id": chatID,
		"code":    code,
	})
	if apperrors.MetadataFor(code).LogAsError {
		entry.Error("Update failed")
	} else {
		entry.Debug("Update rejected")
	}

	var user *models.User
	if from != nil {
		if u, lookupErr := r.svc.Users.GetByTelegramID(context.Background(), from.ID); lookupErr == nil {
			user = u
		}
	}

	text := r.t(user, key)
	if missing := draft.MissingFields(err); len(missing) > 0 {
		lines := make([]string, 0, len(missing))
		for _, field := range missing {
			lines = append(lines, "• "+r.t(user, "field_"+field))
		}
		text += "\n" + strings.Join(lines, "\n")
	}

	if _, sendErr := r.send(bot, chatID, text, nil); sendErr != nil {
		r.logger.WithError(sendErr).WithField("chat_id", chatID).Error("Failed to report error")
	}
}

// UnknownHandler answers commands nobody registered.
type UnknownHandler struct {
	base
}

func (h *UnknownHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	user, err := h.ensureUser(context.Background(), message.From)
	if err != nil {
		return err
	}
	_, err = h.send(bot, message.Chat.ID, h.t(user, "unknown_command"), nil)
	return err
}

// Register wires every handler into router.
func Register(router *telegram.Router, d Deps) {
	b := newBase(d)

	forms := &FormHandler{base: b}
	wishlists := &WishlistHandler{base: b}
	start := &StartHandler{base: b, wishlists: wishlists}
	language := &LanguageHandler{base: b}
	admin := NewAdminHandler(b, d.AdminIDs)

	router.RegisterCommand("start", start)
	router.RegisterCommand("help", &HelpHandler{base: b})
	router.RegisterCommand("wishlists", commandFunc(wishlists.handleOwned))
	router.RegisterCommand("friends", commandFunc(wishlists.handleFriends))
	router.RegisterCommand("view", commandFunc(wishlists.handleView))
	router.RegisterCommand("newwishlist", commandFunc(forms.handleNewWishlist))
	router.RegisterCommand("cancel", commandFunc(forms.handleCancel))
	router.RegisterCommand("language", language)
	router.RegisterCommand("admin", commandFunc(admin.handleStats))
	router.RegisterCommand("broadcast", commandFunc(admin.handleBroadcast))

	router.RegisterCallback(telegram.CallbackMenu, start)
	router.RegisterCallback(telegram.CallbackWishlist, wishlists)
	router.RegisterCallback(telegram.CallbackItem, &ItemHandler{base: b, wishlists: wishlists})
	router.RegisterCallback(telegram.CallbackForm, forms)
	router.RegisterCallback(telegram.CallbackSub, &SubscriptionHandler{base: b, wishlists: wishlists})
	router.RegisterCallback(telegram.CallbackLanguage, language)

	router.RegisterMessage(forms)
	router.SetUnknownCommand(&UnknownHandler{base: b})
	router.SetErrorHandler(&ErrorReporter{base: b})
}

// commandFunc adapts a method to telegram.CommandHandler.
type commandFunc func(bot telegram.Sender, message *tgbotapi.Message, args []string) error

func (f commandFunc) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	return f(bot, message, args)
}
