package telegram

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCommand struct {
	calls [][]string
	err   error
}

func (h *recordingCommand) Handle(_ Sender, _ *tgbotapi.Message, args []string) error {
	h.calls = append(h.calls, args)
	return h.err
}

type recordingCallback struct {
	args []string
	err  error
}

func (h *recordingCallback) HandleCallback(_ Sender, _ *tgbotapi.CallbackQuery, args []string) error {
	h.args = args
	return h.err
}

type recordingMessage struct {
	consume bool
	seen    int
	err     error
}

func (h *recordingMessage) HandleMessage(_ Sender, _ *tgbotapi.Message) (bool, error) {
	h.seen++
	return h.consume, h.err
}

type recordingErrors struct {
	chatID int64
	err    error
}

func (h *recordingErrors) HandleError(_ Sender, chatID int64, _ *tgbotapi.User, err error) {
	h.chatID = chatID
	h.err = err
}

func TestRouterDispatchesCommandsWithArguments(t *testing.T) {
	router := NewRouter(quietLogger())
	view := &recordingCommand{}
	router.RegisterCommand("view", view)

	handled := router.HandleMessage(&fakeSender{}, commandMessage(10, "/view 42 extra"))

	assert.True(t, handled)
	require.Len(t, view.calls, 1)
	assert.Equal(t, []string{"42", "extra"}, view.calls[0])
}

func TestRouterFallsBackToUnknownCommand(t *testing.T) {
	router := NewRouter(quietLogger())
	unknown := &recordingCommand{}

	assert.False(t, router.HandleMessage(&fakeSender{}, commandMessage(10, "/nope")))

	router.SetUnknownCommand(unknown)
	assert.False(t, router.HandleMessage(&fakeSender{}, commandMessage(10, "/nope")))
	assert.Len(t, unknown.calls, 1)
}

func TestRouterReportsCommandErrors(t *testing.T) {
	router := NewRouter(quietLogger())
	boom := errors.New("boom")
	router.RegisterCommand("start", &recordingCommand{err: boom})
	reporter := &recordingErrors{}
	router.SetErrorHandler(reporter)

	router.HandleMessage(&fakeSender{}, commandMessage(77, "/start"))

	assert.Equal(t, int64(77), reporter.chatID)
	assert.ErrorIs(t, reporter.err, boom)
}

func TestRouterTriesMessageHandlersInOrder(t *testing.T) {
	router := NewRouter(quietLogger())
	first := &recordingMessage{}
	second := &recordingMessage{consume: true}
	third := &recordingMessage{consume: true}
	router.RegisterMessage(first)
	router.RegisterMessage(second)
	router.RegisterMessage(third)

	assert.True(t, router.HandleMessage(&fakeSender{}, textMessage(5, "hello")))
	assert.Equal(t, 1, first.seen)
	assert.Equal(t, 1, second.seen)
	assert.Equal(t, 0, third.seen)
}

func TestRouterIgnoresMessagesWithoutSender(t *testing.T) {
	router := NewRouter(quietLogger())
	handler := &recordingMessage{consume: true}
	router.RegisterMessage(handler)

	msg := textMessage(5, "hello")
	msg.From = nil
	assert.False(t, router.HandleMessage(&fakeSender{}, msg))
	assert.Equal(t, 0, handler.seen)
}

func TestRouterDispatchesCallbacksByPrefix(t *testing.T) {
	router := NewRouter(quietLogger())
	subs := &recordingCallback{}
	router.RegisterCallback(CallbackSub, subs)
	sender := &fakeSender{}

	query := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 9},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 9}},
		Data:    Data(CallbackSub, SubApprove, 15),
	}
	assert.True(t, router.HandleCallbackQuery(sender, query))
	assert.Equal(t, []string{SubApprove, "15"}, subs.args)
	require.Len(t, sender.requests, 1, "callback must be answered")

	query.Data = "zzz:1"
	assert.False(t, router.HandleCallbackQuery(sender, query))
	assert.Len(t, sender.requests, 2)
}

func TestRouterReportsCallbackErrorsToChat(t *testing.T) {
	router := NewRouter(quietLogger())
	boom := errors.New("boom")
	router.RegisterCallback(CallbackItem, &recordingCallback{err: boom})
	reporter := &recordingErrors{}
	router.SetErrorHandler(reporter)

	// Inline-mode callbacks have no message; errors go to the user.
	query := &tgbotapi.CallbackQuery{ID: "cb", From: &tgbotapi.User{ID: 31}, Data: "it:res:1"}
	router.HandleCallbackQuery(&fakeSender{}, query)

	assert.Equal(t, int64(31), reporter.chatID)
	assert.ErrorIs(t, reporter.err, boom)
}

func TestCallbackDataHelpers(t *testing.T) {
	assert.Equal(t, "form:edit:title", Data(CallbackForm, "edit", "title"))
	assert.Equal(t, "menu", Data(CallbackMenu))

	args := []string{"7", "x", "-1"}
	id, ok := ArgID(args, 0)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
	_, ok = ArgID(args, 1)
	assert.False(t, ok)
	_, ok = ArgID(args, 2)
	assert.False(t, ok)
	_, ok = ArgID(args, 3)
	assert.False(t, ok)
}
