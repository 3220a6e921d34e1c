package telegram

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/lexicon"
	"github.com/Kerhoff/WishboT/internal/metrics"
	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository"
)

const notifyQueueSize = 256

// Notifier delivers out-of-band messages to users other than the one whose
// update is being handled. Notify only queues; Run sends.
type Notifier struct {
	sender  Sender
	users   repository.UserRepository
	lex     *lexicon.Lexicon
	metrics *metrics.Metrics
	logger  *logrus.Logger
	queue   chan models.Notification
}

func NewNotifier(sender Sender, users repository.UserRepository, lex *lexicon.Lexicon, m *metrics.Metrics, logger *logrus.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		users:   users,
		lex:     lex,
		metrics: m,
		logger:  logger,
		queue:   make(chan models.Notification, notifyQueueSize),
	}
}

// Notify queues notes for delivery. Notes that do not fit into the queue are
// dropped and counted as failures.
func (n *Notifier) Notify(notes ...models.Notification) {
	for _, note := range notes {
		select {
		case n.queue <- note:
		default:
			n.metrics.IncNotification(false)
			n.logger.WithFields(logrus.Fields{
				"recipient_id": note.RecipientID,
				"template":     note.TemplateKey,
			}).Warn("Notification queue full, dropping")
		}
	}
}

// Run delivers queued notifications until ctx is cancelled, then drains
// what is already queued.
func (n *Notifier) Run(ctx context.Context) {
	n.logger.Info("Notifier started")
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case note := <-n.queue:
					n.deliver(context.Background(), note)
				default:
					n.logger.Info("Notifier stopped")
					return
				}
			}
		case note := <-n.queue:
			n.deliver(ctx, note)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, note models.Notification) {
	err := n.Send(ctx, note)
	n.metrics.IncNotification(err == nil)
	if err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"recipient_id": note.RecipientID,
			"template":     note.TemplateKey,
		}).Error("Failed to deliver notification")
	}
}

// Send delivers one notification right away.
func (n *Notifier) Send(ctx context.Context, note models.Notification) error {
	user, err := n.users.GetByID(ctx, note.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	if user == nil {
		return fmt.Errorf("recipient %d not found", note.RecipientID)
	}

	params := make(lexicon.Params, len(note.Params))
	for k, v := range note.Params {
		params[k] = html.EscapeString(v)
	}

	msg := tgbotapi.NewMessage(user.TelegramID, n.lex.T(user.Language, note.TemplateKey, params))
	msg.ParseMode = tgbotapi.ModeHTML
	switch note.TemplateKey {
	case models.NotifyAccessRequested:
		msg.ReplyMarkup = RequestKeyboard(n.lex, user.Language, note.SubscriptionID)
	case models.NotifyAccessApproved:
		msg.ReplyMarkup = OpenWishlistKeyboard(n.lex, user.Language, note.WishlistID)
	}

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
