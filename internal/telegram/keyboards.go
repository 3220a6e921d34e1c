package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Kerhoff/WishboT/internal/lexicon"
)

// Callback data prefixes. Data is "prefix:action[:arg...]".
const (
	CallbackMenu     = "menu"
	CallbackWishlist = "wl"
	CallbackItem     = "it"
	CallbackForm     = "form"
	CallbackSub      = "sub"
	CallbackLanguage = "lang"
)

// Subscription button actions.
const (
	SubRequest   = "req"
	SubApprove   = "ok"
	SubReject    = "no"
	SubLeave     = "leave"
	SubRevoke    = "revoke"
	SubPending   = "pending"
	SubFollowers = "list"
)

// Data builds callback data from a prefix and its parts.
func Data(prefix string, parts ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Button is an inline button carrying Data(prefix, parts...).
func Button(text, prefix string, parts ...any) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, Data(prefix, parts...))
}

// ArgID parses args[i] as a positive id.
func ArgID(args []string, i int) (int64, bool) {
	if i >= len(args) {
		return 0, false
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// RequestKeyboard holds the owner's answer buttons for an access request.
func RequestKeyboard(lex *lexicon.Lexicon, lang string, subscriptionID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		Button(lex.T(lang, "btn_approve"), CallbackSub, SubApprove, subscriptionID),
		Button(lex.T(lang, "btn_reject"), CallbackSub, SubReject, subscriptionID),
	))
}

// OpenWishlistKeyboard links a notification to the wishlist it is about.
func OpenWishlistKeyboard(lex *lexicon.Lexicon, lang string, wishlistID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		Button(lex.T(lang, "btn_view_wishlist"), CallbackWishlist, "view", wishlistID),
	))
}
