package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/telegram"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	base
}

func (h *HelpHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	user, err := h.ensureUser(context.Background(), message.From)
	if err != nil {
		return err
	}

	if _, err := h.send(bot, message.Chat.ID, h.t(user, "help"), nil); err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent help message")

	return nil
}
