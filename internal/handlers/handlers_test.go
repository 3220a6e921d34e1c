package handlers

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/WishboT/internal/draft"
	"github.com/Kerhoff/WishboT/internal/lexicon"
	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/repository/memory"
	"github.com/Kerhoff/WishboT/internal/service"
	"github.com/Kerhoff/WishboT/internal/subscription"
	"github.com/Kerhoff/WishboT/internal/telegram"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []tgbotapi.Chattable
	nextID int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// messages returns the new messages sent so far, skipping edits.
func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

type fakeNotifier struct {
	notes []models.Notification
}

func (f *fakeNotifier) Notify(notes ...models.Notification) {
	f.notes = append(f.notes, notes...)
}

type harness struct {
	router   *telegram.Router
	sender   *fakeSender
	notifier *fakeNotifier
	svc      *service.Service
	lex      *lexicon.Lexicon
}

func quiet() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newHarness(t *testing.T, adminIDs ...int64) *harness {
	t.Helper()
	logger := quiet()

	repos := memory.New()
	drafts := draft.NewManager(draft.NewMemoryStore(time.Hour, nil, logger), repos, nil, logger)
	svc := service.New(repos, drafts, subscription.NewManager(repos, nil, logger), models.LanguageEnglish, logger)
	lex, err := lexicon.Load()
	require.NoError(t, err)

	h := &harness{
		router:   telegram.NewRouter(logger),
		sender:   &fakeSender{},
		notifier: &fakeNotifier{},
		svc:      svc,
		lex:      lex,
	}
	Register(h.router, Deps{
		Service:         svc,
		Lexicon:         lex,
		Notifier:        h.notifier,
		AdminIDs:        adminIDs,
		BotUsername:     "wish_test_bot",
		DefaultLanguage: models.LanguageEnglish,
		Logger:          logger,
	})
	return h
}

func (h *harness) en(key string, params ...lexicon.Params) string {
	return h.lex.T(models.LanguageEnglish, key, params...)
}

func (h *harness) command(userID int64, text string) {
	length := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		length = i
	}
	h.router.HandleMessage(h.sender, &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: "user"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	})
}

func (h *harness) text(userID int64, text string) bool {
	return h.router.HandleMessage(h.sender, &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	})
}

func (h *harness) press(userID int64, messageID int, data string) {
	h.router.HandleCallbackQuery(h.sender, &tgbotapi.CallbackQuery{
		ID:      "q",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	})
}

func callbackData(markup any) []string {
	kb, ok := markup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, button := range row {
			if button.CallbackData != nil {
				out = append(out, *button.CallbackData)
			}
		}
	}
	return out
}

func TestStartSendsWelcomeMenu(t *testing.T) {
	h := newHarness(t)
	h.command(100, "/start")

	msg := h.sender.last(t)
	assert.Equal(t, int64(100), msg.ChatID)
	assert.Equal(t, h.en("welcome"), msg.Text)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, callbackData(msg.ReplyMarkup), "menu:my")
	assert.Contains(t, callbackData(msg.ReplyMarkup), "form:new:wishlist")
}

func TestUnknownCommandAnswers(t *testing.T) {
	h := newHarness(t)
	h.command(100, "/frobnicate")
	assert.Equal(t, h.en("unknown_command"), h.sender.last(t).Text)
}

func TestWishlistFormThroughChat(t *testing.T) {
	h := newHarness(t)
	const owner = 100

	h.command(owner, "/newwishlist")
	preview := h.sender.last(t)
	assert.Contains(t, callbackData(preview.ReplyMarkup), "form:edit:title")
	previewID := h.sender.nextID

	// Nothing is waiting for text yet.
	assert.False(t, h.text(owner, "Birthday List"))

	h.press(owner, previewID, "form:edit:title")
	assert.Contains(t, h.sender.last(t).Text, h.en("prompt_title"))

	assert.True(t, h.text(owner, "ab"))
	assert.Equal(t, h.en(draft.KeyTitleLength), h.sender.last(t).Text)

	assert.True(t, h.text(owner, "Birthday List"))

	h.press(owner, previewID, "form:ok")
	incomplete := h.sender.last(t).Text
	assert.True(t, strings.HasPrefix(incomplete, h.en(draft.KeyDraftIncomplete)))
	assert.Contains(t, incomplete, "• "+h.en("field_privacy"))
	assert.NotContains(t, incomplete, h.en("field_title"))

	h.press(owner, previewID, "form:edit:privacy")
	assert.Contains(t, callbackData(h.sender.last(t).ReplyMarkup), "form:choose:"+draft.ChoicePrivate)
	h.press(owner, previewID, "form:choose:"+draft.ChoicePublic)

	h.press(owner, previewID, "form:ok")
	done := h.sender.last(t)
	assert.True(t, strings.HasPrefix(done.Text, h.en("wishlist_created", lexicon.Params{"title": "Birthday List"})))
	assert.Contains(t, done.Text, "https://t.me/wish_test_bot?start=w_")

	user, err := h.svc.Users.GetByTelegramID(context.Background(), owner)
	require.NoError(t, err)
	lists, err := h.svc.ListOwned(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "Birthday List", lists[0].Title)
	assert.False(t, lists[0].IsPrivate)

	d, err := h.svc.ActiveDraft(context.Background(), owner)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestCancelCommand(t *testing.T) {
	h := newHarness(t)

	h.command(100, "/cancel")
	assert.Equal(t, h.en("nothing_to_cancel"), h.sender.last(t).Text)

	h.command(100, "/newwishlist")
	h.command(100, "/cancel")
	assert.Equal(t, h.en("creation_canceled"), h.sender.last(t).Text)
}

func TestDeepLinkToPrivateWishlistAndAccessRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	owner, err := h.svc.EnsureUser(ctx, 100, "olga", "Olga")
	require.NoError(t, err)
	w, err := h.svc.Wishlists.Create(ctx, &models.Wishlist{OwnerID: owner.ID, Title: "Secret list", IsPrivate: true})
	require.NoError(t, err)

	h.command(200, "/start w_"+w.AccessToken)
	view := h.sender.last(t)
	assert.Equal(t, int64(200), view.ChatID)
	assert.Contains(t, view.Text, "Secret list")
	assert.Contains(t, view.Text, h.en("wishlist_limited"))
	requestData := telegram.Data(telegram.CallbackSub, telegram.SubRequest, w.ID)
	assert.Contains(t, callbackData(view.ReplyMarkup), requestData)

	h.press(200, h.sender.nextID, requestData)

	require.Len(t, h.notifier.notes, 1)
	note := h.notifier.notes[0]
	assert.Equal(t, owner.ID, note.RecipientID)
	assert.Equal(t, models.NotifyAccessRequested, note.TemplateKey)
	assert.NotZero(t, note.SubscriptionID)
}

func TestAdminCommandsRequireAdmin(t *testing.T) {
	h := newHarness(t, 1)
	h.command(100, "/start")

	h.command(100, "/admin")
	assert.Equal(t, h.en("error_access_denied"), h.sender.last(t).Text)

	h.command(1, "/admin")
	assert.Contains(t, h.sender.last(t).Text, "👤 Users: 2")

	h.command(1, "/broadcast Hello everyone")
	assert.Equal(t, h.en("admin_newsletter_started", lexicon.Params{"total": "2"}), h.sender.last(t).Text)
	require.Len(t, h.notifier.notes, 2)
	assert.Equal(t, "Hello everyone", h.notifier.notes[0].Params["text"])
}

func TestErrorReporterUsesTypedKeys(t *testing.T) {
	h := newHarness(t)
	reporter := NewErrorReporter(Deps{
		Service:         h.svc,
		Lexicon:         h.lex,
		DefaultLanguage: models.LanguageRussian,
		Logger:          quiet(),
	})

	tests := []struct {
		name string
		err  error
		key  string
	}{
		{name: "typed key", err: apperrors.Conflict("already_pending", "pending"), key: "already_pending"},
		{name: "code default", err: apperrors.NotFound("gone"), key: "error_not_found"},
		{name: "untyped", err: io.ErrUnexpectedEOF, key: "error_try_later"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reporter.HandleError(h.sender, 55, nil, tt.err)
			assert.Equal(t, h.lex.T(models.LanguageRussian, tt.key), h.sender.last(t).Text)
		})
	}
}
