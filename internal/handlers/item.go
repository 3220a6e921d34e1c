package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/telegram"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// ItemHandler serves the it:* buttons: view, reserve, unreserve and delete.
type ItemHandler struct {
	base
	wishlists *WishlistHandler
}

func (h *ItemHandler) showItem(ctx context.Context, bot telegram.Sender, query *tgbotapi.CallbackQuery, user *models.User, itemID int64) error {
	item, view, err := h.svc.ItemForViewer(ctx, user.ID, itemID)
	if err != nil {
		return err
	}
	text, kb := h.renderItem(h.lang(user), item, view, user.ID)

	if item.PhotoID == "" {
		return h.show(bot, query, text, &kb)
	}

	chatID := callbackChat(query)
	if query.Message != nil && len(query.Message.Photo) > 0 {
		edit := tgbotapi.NewEditMessageCaption(chatID, query.Message.MessageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.ReplyMarkup = &kb
		if _, err := bot.Send(edit); err == nil || isNotModified(err) {
			return nil
		}
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(item.PhotoID))
	photo.Caption = text
	photo.ParseMode = tgbotapi.ModeHTML
	photo.ReplyMarkup = kb
	if _, err := bot.Send(photo); err != nil {
		return apperrors.Storage(err, "send item photo")
	}
	return nil
}

func (h *ItemHandler) HandleCallback(bot telegram.Sender, query *tgbotapi.CallbackQuery, args []string) error {
	ctx := context.Background()

	user, err := h.ensureUser(ctx, query.From)
	if err != nil {
		return err
	}
	id, ok := telegram.ArgID(args, 1)
	if !ok {
		return apperrors.NotFound("malformed item button")
	}

	fields := logrus.Fields{"user_id": user.ID, "item_id": id}

	switch args[0] {
	case "view":
		return h.showItem(ctx, bot, query, user, id)

	case "res":
		if _, err := h.svc.ReserveItem(ctx, user.ID, id); err != nil {
			return err
		}
		h.logger.WithFields(fields).Info("Item reserved")
		return h.showItem(ctx, bot, query, user, id)

	case "unres":
		if _, err := h.svc.UnreserveItem(ctx, user.ID, id); err != nil {
			return err
		}
		h.logger.WithFields(fields).Info("Item reservation dropped")
		return h.showItem(ctx, bot, query, user, id)

	case "del":
		wishlistID, err := h.svc.DeleteItem(ctx, user.ID, id)
		if err != nil {
			return err
		}
		h.logger.WithFields(fields).Info("Item deleted")
		view, err := h.svc.ViewWishlistByID(ctx, wishlistID, user.ID)
		if err != nil {
			return err
		}
		return h.wishlists.showView(bot, query, user, view)
	}

	return apperrors.NotFound("unknown item action")
}
