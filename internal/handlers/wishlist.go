package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/lexicon"
	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/service"
	"github.com/Kerhoff/WishboT/internal/telegram"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// WishlistHandler shows wishlists and their lists: /wishlists, /friends,
// /view <ref> and the wl:* buttons.
type WishlistHandler struct {
	base
}

func (h *WishlistHandler) listScreen(lang string, lists []*models.Wishlist, emptyKey, key string, withCreate bool) (string, tgbotapi.InlineKeyboardMarkup) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, w := range lists {
		title := w.Title
		if w.IsPrivate {
			title = "🔒 " + title
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			telegram.Button(title, telegram.CallbackWishlist, "view", w.ID),
		))
	}
	if withCreate {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			telegram.Button(h.lex.T(lang, "btn_create_wishlist"), telegram.CallbackForm, "new", "wishlist"),
		))
	}

	text := h.lex.T(lang, key)
	if len(lists) == 0 {
		text = h.lex.T(lang, emptyKey)
	}
	return text, tgbotapi.NewInlineKeyboardMarkup(h.withMenu(lang, rows)...)
}

func (h *WishlistHandler) ownedScreen(ctx context.Context, user *models.User) (string, tgbotapi.InlineKeyboardMarkup, error) {
	lists, err := h.svc.ListOwned(ctx, user.ID)
	if err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, err
	}
	text, kb := h.listScreen(h.lang(user), lists, "my_wishlists_if_none", "my_wishlists", true)
	return text, kb, nil
}

func (h *WishlistHandler) friendsScreen(ctx context.Context, user *models.User) (string, tgbotapi.InlineKeyboardMarkup, error) {
	lists, err := h.svc.ListSubscribed(ctx, user.ID)
	if err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, err
	}
	text, kb := h.listScreen(h.lang(user), lists, "friends_wishlists_if_none", "friends_wishlists", false)
	return text, kb, nil
}

func (h *WishlistHandler) handleOwned(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()
	user, err := h.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}
	text, kb, err := h.ownedScreen(ctx, user)
	if err != nil {
		return err
	}
	_, err = h.send(bot, message.Chat.ID, text, kb)
	return err
}

func (h *WishlistHandler) handleFriends(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()
	user, err := h.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}
	text, kb, err := h.friendsScreen(ctx, user)
	if err != nil {
		return err
	}
	_, err = h.send(bot, message.Chat.ID, text, kb)
	return err
}

// handleView processes /view <id or token>.
func (h *WishlistHandler) handleView(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()
	user, err := h.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		_, err := h.send(bot, message.Chat.ID, h.t(user, "view_usage"), nil)
		return err
	}
	return h.sendRef(ctx, bot, message.Chat.ID, user, args[0])
}

func (h *WishlistHandler) sendRef(ctx context.Context, bot telegram.Sender, chatID int64, user *models.User, ref string) error {
	view, err := h.svc.ViewWishlist(ctx, ref, user.ID)
	if err != nil {
		return err
	}
	text, kb := h.renderWishlist(h.lang(user), view)
	_, err = h.send(bot, chatID, text, kb)
	return err
}

func (h *WishlistHandler) sendView(ctx context.Context, bot telegram.Sender, chatID int64, user *models.User, wishlistID int64) error {
	view, err := h.svc.ViewWishlistByID(ctx, wishlistID, user.ID)
	if err != nil {
		return err
	}
	text, kb := h.renderWishlist(h.lang(user), view)
	_, err = h.send(bot, chatID, text, kb)
	return err
}

func (h *WishlistHandler) showView(bot telegram.Sender, query *tgbotapi.CallbackQuery, user *models.User, view *service.WishlistView) error {
	text, kb := h.renderWishlist(h.lang(user), view)
	return h.show(bot, query, text, &kb)
}

func (h *WishlistHandler) showOwned(ctx context.Context, bot telegram.Sender, query *tgbotapi.CallbackQuery, user *models.User) error {
	text, kb, err := h.ownedScreen(ctx, user)
	if err != nil {
		return err
	}
	return h.show(bot, query, text, &kb)
}

func (h *WishlistHandler) showFriends(ctx context.Context, bot telegram.Sender, query *tgbotapi.CallbackQuery, user *models.User) error {
	text, kb, err := h.friendsScreen(ctx, user)
	if err != nil {
		return err
	}
	return h.show(bot, query, text, &kb)
}

// HandleCallback serves wl:view:<id>, wl:del:<id> and wl:delok:<id>.
func (h *WishlistHandler) HandleCallback(bot telegram.Sender, query *tgbotapi.CallbackQuery, args []string) error {
	ctx := context.Background()

	user, err := h.ensureUser(ctx, query.From)
	if err != nil {
		return err
	}
	id, ok := telegram.ArgID(args, 1)
	if !ok {
		return apperrors.NotFound("malformed wishlist button")
	}
	lang := h.lang(user)

	switch args[0] {
	case "view":
		view, err := h.svc.ViewWishlistByID(ctx, id, user.ID)
		if err != nil {
			return err
		}
		return h.showView(bot, query, user, view)

	case "del":
		view, err := h.svc.ViewWishlistByID(ctx, id, user.ID)
		if err != nil {
			return err
		}
		if !view.Role.CanEdit() {
			return apperrors.Forbidden("only the owner can delete a wishlist")
		}
		kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			telegram.Button(h.lex.T(lang, "confirm_delete"), telegram.CallbackWishlist, "delok", id),
			telegram.Button(h.lex.T(lang, "cancel"), telegram.CallbackWishlist, "view", id),
		))
		return h.show(bot, query, h.lex.T(lang, "wishlist_delete_confirm", lexicon.Params{"title": esc(view.Wishlist.Title)}), &kb)

	case "delok":
		if err := h.svc.DeleteWishlist(ctx, user.ID, id); err != nil {
			return err
		}
		h.logger.WithFields(logrus.Fields{
			"user_id":     user.ID,
			"wishlist_id": id,
		}).Info("Wishlist deleted from chat")

		text, kb, err := h.ownedScreen(ctx, user)
		if err != nil {
			return err
		}
		return h.show(bot, query, h.lex.T(lang, "wishlist_deleted_success")+"\n\n"+text, &kb)
	}

	return apperrors.NotFound("unknown wishlist action")
}
