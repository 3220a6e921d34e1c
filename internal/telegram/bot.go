package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/Kerhoff/WishboT/internal/metrics"
)

// Bot wraps the Telegram bot API
type Bot struct {
	api     *tgbotapi.BotAPI
	sender  Sender
	logger  *logrus.Logger
	router  *Router
	metrics *metrics.Metrics
	queues  *chatQueues
	running atomic.Bool
}

// NewBot creates a new Telegram bot instance
func NewBot(token string, router *Router, m *metrics.Metrics, logger *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Infof("Authorized on account %s", api.Self.UserName)

	b := newBot(api, router, m, logger)
	b.api = api
	return b, nil
}

func newBot(sender Sender, router *Router, m *metrics.Metrics, logger *logrus.Logger) *Bot {
	b := &Bot{
		sender:  sender,
		logger:  logger,
		router:  router,
		metrics: m,
	}
	b.queues = newChatQueues(b.handleUpdate)
	return b
}

// Sender exposes the API client for out-of-band messages.
func (b *Bot) Sender() Sender {
	return b.sender
}

// Username returns the bot account name used in share links.
func (b *Bot) Username() string {
	if b.api == nil {
		return ""
	}
	return b.api.Self.UserName
}

// Running reports whether the polling loop is active.
func (b *Bot) Running() bool {
	return b.running.Load()
}

// Start starts the bot with long polling and returns once ctx is done and
// in-flight updates have finished.
func (b *Bot) Start(ctx context.Context) error {
	// Delete webhook if exists and use polling
	_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.running.Store(true)
	defer b.running.Store(false)
	b.logger.Info("Bot started with long polling")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping bot...")
			b.api.StopReceivingUpdates()
			b.queues.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.queues.Wait()
				return nil
			}
			b.dispatch(update)
		}
	}
}

// dispatch queues update behind earlier updates of the same chat.
func (b *Bot) dispatch(update tgbotapi.Update) {
	chatID, _ := updateChat(update)
	if chatID == 0 {
		b.handleUpdate(update)
		return
	}
	b.queues.Push(chatID, update)
}

func updateChat(update tgbotapi.Update) (int64, string) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, "message"
	case update.CallbackQuery != nil:
		return callbackChatID(update.CallbackQuery), "callback"
	}
	return 0, "other"
}

func updateFrom(update tgbotapi.Update) *tgbotapi.User {
	switch {
	case update.Message != nil:
		return update.Message.From
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From
	}
	return nil
}

// handleUpdate routes one update. Callers keep updates of a chat in order.
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	chatID, kind := updateChat(update)
	if chatID == 0 {
		b.metrics.ObserveUpdate(kind, false, 0)
		return
	}

	start := time.Now()
	handled := false
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithField("chat_id", chatID).Errorf("Panic in update handler: %v", r)
			b.router.fail(b.sender, chatID, updateFrom(update), fmt.Errorf("panic in update handler: %v", r))
		}
		duration := time.Since(start)
		b.metrics.ObserveUpdate(kind, handled, duration)
		b.logger.WithFields(logrus.Fields{
			"update_id": update.UpdateID,
			"chat_id":   chatID,
			"kind":      kind,
			"handled":   handled,
			"duration":  duration,
		}).Info("Update processed")
	}()

	if update.Message != nil {
		handled = b.router.HandleMessage(b.sender, update.Message)
	} else {
		handled = b.router.HandleCallbackQuery(b.sender, update.CallbackQuery)
	}
}
