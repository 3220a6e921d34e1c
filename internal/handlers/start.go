package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/telegram"
)

// deepLinkPrefix marks a shared wishlist in /start arguments.
const deepLinkPrefix = "w_"

// StartHandler handles the /start command and the main menu buttons
type StartHandler struct {
	base
	wishlists *WishlistHandler
}

func (h *StartHandler) mainMenu(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			telegram.Button(h.lex.T(lang, "btn_my_wishlists"), telegram.CallbackMenu, "my"),
			telegram.Button(h.lex.T(lang, "btn_friends_wishlists"), telegram.CallbackMenu, "friends"),
		),
		tgbotapi.NewInlineKeyboardRow(
			telegram.Button(h.lex.T(lang, "btn_create_wishlist"), telegram.CallbackForm, "new", "wishlist"),
		),
		tgbotapi.NewInlineKeyboardRow(
			telegram.Button(h.lex.T(lang, "btn_help"), telegram.CallbackMenu, "help"),
		),
	)
}

// Handle processes the /start command. "/start w_<token>" opens a shared
// wishlist.
func (h *StartHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	user, err := h.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}

	if len(args) > 0 && strings.HasPrefix(args[0], deepLinkPrefix) {
		h.logger.WithFields(logrus.Fields{
			"chat_id": message.Chat.ID,
			"user_id": user.ID,
		}).Info("Opened shared wishlist link")
		return h.wishlists.sendRef(ctx, bot, message.Chat.ID, user, strings.TrimPrefix(args[0], deepLinkPrefix))
	}

	lang := h.lang(user)
	if _, err := h.send(bot, message.Chat.ID, h.lex.T(lang, "welcome"), h.mainMenu(lang)); err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": user.ID,
	}).Info("Sent start message")

	return nil
}

// HandleCallback serves menu:main, menu:my, menu:friends and menu:help.
func (h *StartHandler) HandleCallback(bot telegram.Sender, query *tgbotapi.CallbackQuery, args []string) error {
	ctx := context.Background()

	user, err := h.ensureUser(ctx, query.From)
	if err != nil {
		return err
	}
	lang := h.lang(user)

	action := ""
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "my":
		return h.wishlists.showOwned(ctx, bot, query, user)
	case "friends":
		return h.wishlists.showFriends(ctx, bot, query, user)
	case "help":
		kb := tgbotapi.NewInlineKeyboardMarkup(h.withMenu(lang, nil)...)
		return h.show(bot, query, h.lex.T(lang, "help"), &kb)
	default:
		kb := h.mainMenu(lang)
		return h.show(bot, query, h.lex.T(lang, "start_menu"), &kb)
	}
}
