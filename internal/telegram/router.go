package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender is the part of the Bot API the handlers talk to. *tgbotapi.BotAPI
// satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	Handle(bot Sender, message *tgbotapi.Message, args []string) error
}

// CallbackHandler handles inline button presses. args are the
// colon-separated parts of the callback data after the prefix.
type CallbackHandler interface {
	HandleCallback(bot Sender, query *tgbotapi.CallbackQuery, args []string) error
}

// MessageHandler sees plain messages (text or photos) and reports whether it
// consumed them.
type MessageHandler interface {
	HandleMessage(bot Sender, message *tgbotapi.Message) (bool, error)
}

// ErrorHandler turns a failed handler into a reply for the user.
type ErrorHandler interface {
	HandleError(bot Sender, chatID int64, from *tgbotapi.User, err error)
}

// Router handles message routing and command parsing
type Router struct {
	logger    *logrus.Logger
	handlers  map[string]CommandHandler
	callbacks map[string]CallbackHandler
	messages  []MessageHandler
	unknown   CommandHandler
	errors    ErrorHandler
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		logger:    logger,
		handlers:  make(map[string]CommandHandler),
		callbacks: make(map[string]CallbackHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// RegisterCallback routes callback data starting with "prefix:" to handler.
func (r *Router) RegisterCallback(prefix string, handler CallbackHandler) {
	r.callbacks[prefix] = handler
	r.logger.Debugf("Registered callback: %s", prefix)
}

// RegisterMessage appends a handler for non-command messages. Handlers are
// tried in registration order.
func (r *Router) RegisterMessage(handler MessageHandler) {
	r.messages = append(r.messages, handler)
}

// SetUnknownCommand sets the reply for commands nobody registered.
func (r *Router) SetUnknownCommand(handler CommandHandler) {
	r.unknown = handler
}

func (r *Router) SetErrorHandler(handler ErrorHandler) {
	r.errors = handler
}

func (r *Router) fail(bot Sender, chatID int64, from *tgbotapi.User, err error) {
	if r.errors != nil {
		r.errors.HandleError(bot, chatID, from, err)
		return
	}
	r.logger.WithError(err).WithField("chat_id", chatID).Error("Handler failed")
}

// HandleMessage handles incoming messages and reports whether any handler
// took the message.
func (r *Router) HandleMessage(bot Sender, message *tgbotapi.Message) bool {
	if message.From == nil {
		return false
	}

	r.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"user_id":    message.From.ID,
		"username":   message.From.UserName,
		"message_id": message.MessageID,
	}).Debug("Received message")

	if !message.IsCommand() {
		for _, handler := range r.messages {
			handled, err := handler.HandleMessage(bot, message)
			if err != nil {
				r.fail(bot, message.Chat.ID, message.From, err)
				return true
			}
			if handled {
				return true
			}
		}
		return false
	}

	command := message.Command()
	args := strings.Fields(message.CommandArguments())

	handler, exists := r.handlers[command]
	if !exists {
		r.logger.WithFields(logrus.Fields{
			"command": command,
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
		}).Warn("Unknown command")
		if r.unknown == nil {
			return false
		}
		handler = r.unknown
	}

	if err := handler.Handle(bot, message, args); err != nil {
		r.logger.WithFields(logrus.Fields{
			"command": command,
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
		}).WithError(err).Debug("Command handler failed")
		r.fail(bot, message.Chat.ID, message.From, err)
	}
	return exists
}

// HandleCallbackQuery handles callback queries from inline keyboards
func (r *Router) HandleCallbackQuery(bot Sender, query *tgbotapi.CallbackQuery) bool {
	r.logger.WithFields(logrus.Fields{
		"callback_id": query.ID,
		"user_id":     query.From.ID,
		"data":        query.Data,
	}).Debug("Received callback query")

	// Answer the callback query to remove loading state
	if _, err := bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		r.logger.WithError(err).Debug("Failed to answer callback query")
	}

	parts := strings.Split(query.Data, ":")
	handler, exists := r.callbacks[parts[0]]
	if !exists {
		r.logger.WithField("data", query.Data).Warn("Unknown callback")
		return false
	}

	if err := handler.HandleCallback(bot, query, parts[1:]); err != nil {
		r.fail(bot, callbackChatID(query), query.From, err)
	}
	return true
}

func callbackChatID(query *tgbotapi.CallbackQuery) int64 {
	if query.Message != nil && query.Message.Chat != nil {
		return query.Message.Chat.ID
	}
	return query.From.ID
}
