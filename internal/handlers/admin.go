package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/lexicon"
	"github.com/Kerhoff/WishboT/internal/telegram"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// AdminHandler serves /admin and /broadcast for the Telegram IDs listed in
// ADMIN_IDS.
type AdminHandler struct {
	base
	admins map[int64]bool
}

func NewAdminHandler(b base, telegramIDs []int64) *AdminHandler {
	admins := make(map[int64]bool, len(telegramIDs))
	for _, id := range telegramIDs {
		admins[id] = true
	}
	return &AdminHandler{base: b, admins: admins}
}

func (h *AdminHandler) check(message *tgbotapi.Message) error {
	if !h.admins[message.From.ID] {
		h.logger.WithFields(logrus.Fields{
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
		}).Warn("Admin command from non-admin")
		return apperrors.Forbidden("admin only")
	}
	return nil
}

func (h *AdminHandler) handleStats(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if err := h.check(message); err != nil {
		return err
	}
	ctx := context.Background()
	user, err := h.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		return err
	}
	text := h.t(user, "admin_statistics_text", lexicon.Params{
		"users_count":     fmt.Sprint(stats.Users),
		"wishlists_count": fmt.Sprint(stats.Wishlists),
		"gifts_count":     fmt.Sprint(stats.Items),
	})
	_, err = h.send(bot, message.Chat.ID, text, nil)
	return err
}

// handleBroadcast queues /broadcast <text> for every known user.
func (h *AdminHandler) handleBroadcast(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if err := h.check(message); err != nil {
		return err
	}
	ctx := context.Background()
	user, err := h.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}

	notes, err := h.svc.Broadcast(ctx, message.CommandArguments())
	if err != nil {
		return err
	}
	if h.notifier != nil {
		h.notifier.Notify(notes...)
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"recipients": len(notes),
	}).Info("Broadcast queued")

	_, err = h.send(bot, message.Chat.ID, h.t(user, "admin_newsletter_started", lexicon.Params{"total": fmt.Sprint(len(notes))}), nil)
	return err
}
