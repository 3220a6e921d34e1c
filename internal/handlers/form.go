package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/draft"
	"github.com/Kerhoff/WishboT/internal/lexicon"
	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/service"
	"github.com/Kerhoff/WishboT/internal/telegram"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// FormHandler runs wishlist and item forms: the form:* buttons, typed
// field values, photos and /cancel.
type FormHandler struct {
	base
}

func (h *FormHandler) act(ctx context.Context, chatID int64, user *models.User, req service.FormRequest) (*service.FormResult, error) {
	req.ChatID = chatID
	req.UserID = user.ID
	return h.svc.FormAction(ctx, req)
}

func (h *FormHandler) start(ctx context.Context, bot telegram.Sender, chatID int64, user *models.User, req service.FormRequest) error {
	req.Action = service.FormStart
	res, err := h.act(ctx, chatID, user, req)
	if err != nil {
		return err
	}
	if res.Replaced != nil {
		h.deleteMessage(bot, chatID, res.Replaced.PreviewMessageID)
		if _, err := h.send(bot, chatID, h.t(user, "draft_replaced"), nil); err != nil {
			return err
		}
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"user_id": user.ID,
		"kind":    res.Draft.Kind,
		"editing": res.Draft.Editing,
	}).Info("Form started")

	return h.preview(ctx, bot, chatID, user, res.Draft, true)
}

func hasPhoto(d *draft.Draft) bool {
	return d.Kind == draft.KindItem && d.Values.PhotoID != nil && *d.Values.PhotoID != ""
}

// preview shows the draft. Unless fresh is set the existing preview message
// is edited in place; otherwise, or when editing fails, the old preview is
// replaced by a new message whose id is stored on the draft.
func (h *FormHandler) preview(ctx context.Context, bot telegram.Sender, chatID int64, user *models.User, d *draft.Draft, fresh bool) error {
	text, kb := h.renderDraft(h.lang(user), d)

	if !fresh && d.PreviewMessageID != 0 {
		var edit tgbotapi.Chattable
		if hasPhoto(d) {
			c := tgbotapi.NewEditMessageCaption(chatID, d.PreviewMessageID, text)
			c.ParseMode = tgbotapi.ModeHTML
			c.ReplyMarkup = &kb
			edit = c
		} else {
			t := tgbotapi.NewEditMessageTextAndMarkup(chatID, d.PreviewMessageID, text, kb)
			t.ParseMode = tgbotapi.ModeHTML
			edit = t
		}
		if _, err := bot.Send(edit); err == nil || isNotModified(err) {
			return nil
		}
	}

	h.deleteMessage(bot, chatID, d.PreviewMessageID)

	var messageID int
	if hasPhoto(d) {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(*d.Values.PhotoID))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = kb
		sent, err := bot.Send(photo)
		if err != nil {
			return apperrors.Storage(err, "send draft preview")
		}
		messageID = sent.MessageID
	} else {
		id, err := h.send(bot, chatID, text, kb)
		if err != nil {
			return apperrors.Storage(err, "send draft preview")
		}
		messageID = id
	}

	_, err := h.act(ctx, chatID, user, service.FormRequest{Action: service.FormPreview, MessageID: messageID})
	return err
}

func (h *FormHandler) handleNewWishlist(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()
	user, err := h.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}
	return h.start(ctx, bot, message.Chat.ID, user, service.FormRequest{Kind: draft.KindWishlist})
}

func (h *FormHandler) handleCancel(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()
	user, err := h.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}

	d, err := h.svc.ActiveDraft(ctx, message.Chat.ID)
	if err != nil {
		return err
	}
	if d == nil {
		_, err := h.send(bot, message.Chat.ID, h.t(user, "nothing_to_cancel"), nil)
		return err
	}
	return h.cancel(ctx, bot, message.Chat.ID, user)
}

func (h *FormHandler) cancel(ctx context.Context, bot telegram.Sender, chatID int64, user *models.User) error {
	res, err := h.act(ctx, chatID, user, service.FormRequest{Action: service.FormCancel})
	if err != nil {
		return err
	}
	h.deleteMessage(bot, chatID, res.Cancelled.PreviewMessageID)

	key := "creation_canceled"
	if res.Cancelled.Editing {
		key = "editing_canceled"
	}
	_, err = h.send(bot, chatID, h.t(user, key), nil)
	return err
}

func (h *FormHandler) confirm(ctx context.Context, bot telegram.Sender, chatID int64, user *models.User) error {
	res, err := h.act(ctx, chatID, user, service.FormRequest{Action: service.FormConfirm})
	if err != nil {
		return err
	}
	commit := res.Commit
	h.deleteMessage(bot, chatID, commit.Draft.PreviewMessageID)

	var (
		text       string
		wishlistID int64
	)
	if commit.Kind == draft.KindItem {
		wishlistID = commit.Item.WishlistID
		text = h.t(user, "item_saved", lexicon.Params{"name": esc(commit.Item.Name)})
	} else {
		wishlistID = commit.Wishlist.ID
		key := "wishlist_updated"
		if commit.Created {
			key = "wishlist_created"
		}
		text = h.t(user, key, lexicon.Params{"title": esc(commit.Wishlist.Title)})
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":     chatID,
		"user_id":     user.ID,
		"kind":        commit.Kind,
		"created":     commit.Created,
		"wishlist_id": wishlistID,
	}).Info("Form committed")

	view, err := h.svc.ViewWishlistByID(ctx, wishlistID, user.ID)
	if err != nil {
		return err
	}
	body, kb := h.renderWishlist(h.lang(user), view)
	_, err = h.send(bot, chatID, text+"\n\n"+body, kb)
	return err
}

// HandleCallback serves form:new:wishlist, form:new:item:<wishlist>,
// form:open:wishlist:<id>, form:open:item:<id>, form:edit:<field>,
// form:choose:<value>, form:nophoto, form:ok and form:cancel.
func (h *FormHandler) HandleCallback(bot telegram.Sender, query *tgbotapi.CallbackQuery, args []string) error {
	ctx := context.Background()

	user, err := h.ensureUser(ctx, query.From)
	if err != nil {
		return err
	}
	chatID := callbackChat(query)
	if len(args) == 0 {
		return apperrors.New(apperrors.CodeInvalidTransition, "empty form button")
	}

	promptID := 0
	if query.Message != nil {
		promptID = query.Message.MessageID
	}

	switch args[0] {
	case "new", "open":
		if len(args) < 2 {
			return apperrors.New(apperrors.CodeInvalidTransition, "malformed form button")
		}
		req := service.FormRequest{Kind: draft.Kind(args[1])}
		id, hasID := telegram.ArgID(args, 2)
		switch {
		case args[0] == "open" && hasID:
			req.TargetID = &id
		case args[0] == "new" && req.Kind == draft.KindItem && hasID:
			req.WishlistID = id
		case args[0] == "new" && req.Kind == draft.KindWishlist:
		default:
			return apperrors.New(apperrors.CodeInvalidTransition, "malformed form button")
		}
		return h.start(ctx, bot, chatID, user, req)

	case "edit":
		if len(args) < 2 {
			return apperrors.New(apperrors.CodeInvalidTransition, "malformed form button")
		}
		res, err := h.act(ctx, chatID, user, service.FormRequest{Action: service.FormEdit, Field: args[1]})
		if err != nil {
			return err
		}
		text, kb := h.fieldPrompt(h.lang(user), res.Draft)
		_, err = h.send(bot, chatID, text, *kb)
		return err

	case "choose":
		if len(args) < 2 {
			return apperrors.New(apperrors.CodeInvalidTransition, "malformed form button")
		}
		res, err := h.act(ctx, chatID, user, service.FormRequest{Action: service.FormChoose, Value: args[1]})
		if err != nil {
			return err
		}
		if promptID != res.Draft.PreviewMessageID {
			h.deleteMessage(bot, chatID, promptID)
		}
		return h.preview(ctx, bot, chatID, user, res.Draft, false)

	case "nophoto":
		res, err := h.act(ctx, chatID, user, service.FormRequest{Action: service.FormRemovePhoto})
		if err != nil {
			return err
		}
		if promptID != res.Draft.PreviewMessageID {
			h.deleteMessage(bot, chatID, promptID)
		}
		return h.preview(ctx, bot, chatID, user, res.Draft, true)

	case "ok":
		return h.confirm(ctx, bot, chatID, user)

	case "cancel":
		d, err := h.svc.ActiveDraft(ctx, chatID)
		if err != nil {
			return err
		}
		if d != nil && promptID != 0 && promptID != d.PreviewMessageID {
			h.deleteMessage(bot, chatID, promptID)
		}
		return h.cancel(ctx, bot, chatID, user)
	}

	return apperrors.New(apperrors.CodeInvalidTransition, "unknown form action")
}

// HandleMessage feeds typed text and photos to the chat's draft when the
// draft is waiting for them.
func (h *FormHandler) HandleMessage(bot telegram.Sender, message *tgbotapi.Message) (bool, error) {
	ctx := context.Background()
	chatID := message.Chat.ID

	d, err := h.svc.ActiveDraft(ctx, chatID)
	if err != nil {
		return true, err
	}
	if d == nil {
		return false, nil
	}

	user, err := h.ensureUser(ctx, message.From)
	if err != nil {
		return true, err
	}
	if user.ID != d.OwnerID {
		return false, nil
	}

	switch {
	case len(message.Photo) > 0 && d.AwaitingPhoto():
		largest := message.Photo[len(message.Photo)-1]
		res, err := h.act(ctx, chatID, user, service.FormRequest{Action: service.FormPhoto, Value: largest.FileID})
		if err != nil {
			return true, err
		}
		return true, h.preview(ctx, bot, chatID, user, res.Draft, true)

	case message.Text != "" && d.AwaitingText():
		res, err := h.act(ctx, chatID, user, service.FormRequest{Action: service.FormInput, Value: message.Text})
		if err != nil {
			return true, err
		}
		return true, h.preview(ctx, bot, chatID, user, res.Draft, false)
	}

	return false, nil
}
