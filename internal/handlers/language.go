package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/telegram"
)

// LanguageHandler handles /language [en|ru] and the language buttons.
type LanguageHandler struct {
	base
}

func (h *LanguageHandler) picker() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		telegram.Button("English", telegram.CallbackLanguage, models.LanguageEnglish),
		telegram.Button("Русский", telegram.CallbackLanguage, models.LanguageRussian),
	))
}

func (h *LanguageHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	user, err := h.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		_, err := h.send(bot, message.Chat.ID, h.t(user, "language_pick"), h.picker())
		return err
	}

	user, err = h.svc.SetLanguage(ctx, user.ID, args[0])
	if err != nil {
		return err
	}
	_, err = h.send(bot, message.Chat.ID, h.t(user, "language_set"), nil)
	return err
}

func (h *LanguageHandler) HandleCallback(bot telegram.Sender, query *tgbotapi.CallbackQuery, args []string) error {
	ctx := context.Background()

	user, err := h.ensureUser(ctx, query.From)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		kb := h.picker()
		return h.show(bot, query, h.t(user, "language_pick"), &kb)
	}

	user, err = h.svc.SetLanguage(ctx, user.ID, args[0])
	if err != nil {
		return err
	}
	return h.show(bot, query, h.t(user, "language_set"), nil)
}
