package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/lexicon"
	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/service"
	"github.com/Kerhoff/WishboT/internal/telegram"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// SubscriptionHandler serves the sub:* buttons of both sides: requesting and
// leaving a list, and the owner's answers.
type SubscriptionHandler struct {
	base
	wishlists *WishlistHandler
}

func (h *SubscriptionHandler) subscriberName(ctx context.Context, userID int64) string {
	user, err := h.svc.UserByID(ctx, userID)
	if err != nil {
		return fmt.Sprintf("#%d", userID)
	}
	return user.DisplayName()
}

func (h *SubscriptionHandler) showWithNote(ctx context.Context, bot telegram.Sender, query *tgbotapi.CallbackQuery, user *models.User, wishlistID int64, note string) error {
	view, err := h.svc.ViewWishlistByID(ctx, wishlistID, user.ID)
	if err != nil {
		return err
	}
	text, kb := h.renderWishlist(h.lang(user), view)
	return h.show(bot, query, note+"\n\n"+text, &kb)
}

func (h *SubscriptionHandler) HandleCallback(bot telegram.Sender, query *tgbotapi.CallbackQuery, args []string) error {
	ctx := context.Background()

	user, err := h.ensureUser(ctx, query.From)
	if err != nil {
		return err
	}
	id, ok := telegram.ArgID(args, 1)
	if !ok {
		return apperrors.NotFound("malformed subscription button")
	}
	lang := h.lang(user)

	run := func(action service.SubscriptionActionType) (*service.SubscriptionResult, error) {
		req := service.SubscriptionRequest{UserID: user.ID, Action: action}
		switch action {
		case service.ActionApprove, service.ActionReject, service.ActionRevoke:
			req.SubscriptionID = id
		default:
			req.WishlistID = id
		}
		res, err := h.svc.SubscriptionAction(ctx, req)
		if err != nil {
			return nil, err
		}
		h.notify(res.Notification)
		h.logger.WithFields(logrus.Fields{
			"user_id": user.ID,
			"action":  action,
			"target":  id,
		}).Info("Subscription action")
		return res, nil
	}

	switch args[0] {
	case telegram.SubRequest:
		res, err := run(service.ActionRequestAccess)
		if err != nil {
			return err
		}
		note := h.lex.T(lang, "request_sent")
		if res.Subscription.IsApproved() {
			note = h.lex.T(lang, "subscribed")
		}
		return h.showWithNote(ctx, bot, query, user, id, note)

	case telegram.SubLeave:
		if _, err := run(service.ActionUnsubscribe); err != nil {
			return err
		}
		return h.showWithNote(ctx, bot, query, user, id, h.lex.T(lang, "unsubscribed"))

	case telegram.SubApprove, telegram.SubReject:
		action, key := service.ActionApprove, "request_approved_owner"
		if args[0] == telegram.SubReject {
			action, key = service.ActionReject, "request_rejected_owner"
		}
		res, err := run(action)
		if err != nil {
			return err
		}
		text := h.lex.T(lang, key, lexicon.Params{"subscriber": esc(h.subscriberName(ctx, res.Subscription.SubscriberID))})
		return h.show(bot, query, text, nil)

	case telegram.SubRevoke:
		if _, err := run(service.ActionRevoke); err != nil {
			return err
		}
		return h.show(bot, query, h.lex.T(lang, "subscriber_revoked"), nil)

	case telegram.SubPending:
		res, err := run(service.ActionListPending)
		if err != nil {
			return err
		}
		if len(res.Subscriptions) == 0 {
			kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
				telegram.Button(h.lex.T(lang, "back_to_wishlist"), telegram.CallbackWishlist, "view", id),
			))
			return h.show(bot, query, h.lex.T(lang, "no_pending_requests"), &kb)
		}
		for _, sub := range res.Subscriptions {
			text := h.lex.T(lang, "pending_request", lexicon.Params{"subscriber": esc(h.subscriberName(ctx, sub.SubscriberID))})
			if _, err := h.send(bot, callbackChat(query), text, telegram.RequestKeyboard(h.lex, lang, sub.ID)); err != nil {
				return err
			}
		}
		return nil

	case telegram.SubFollowers:
		res, err := run(service.ActionListSubscribers)
		if err != nil {
			return err
		}
		var (
			lines []string
			rows  [][]tgbotapi.InlineKeyboardButton
		)
		for _, sub := range res.Subscriptions {
			name := h.subscriberName(ctx, sub.SubscriberID)
			lines = append(lines, "• "+esc(name))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				telegram.Button(h.lex.T(lang, "btn_revoke", lexicon.Params{"subscriber": name}), telegram.CallbackSub, telegram.SubRevoke, sub.ID),
			))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			telegram.Button(h.lex.T(lang, "back_to_wishlist"), telegram.CallbackWishlist, "view", id),
		))

		text := h.lex.T(lang, "no_subscribers")
		if len(lines) > 0 {
			text = h.lex.T(lang, "subscribers") + "\n" + strings.Join(lines, "\n")
		}
		kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
		return h.show(bot, query, text, &kb)
	}

	return apperrors.NotFound("unknown subscription action")
}
