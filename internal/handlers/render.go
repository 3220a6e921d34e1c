package handlers

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Kerhoff/WishboT/internal/access"
	"github.com/Kerhoff/WishboT/internal/draft"
	"github.com/Kerhoff/WishboT/internal/form"
	"github.com/Kerhoff/WishboT/internal/lexicon"
	"github.com/Kerhoff/WishboT/internal/models"
	"github.com/Kerhoff/WishboT/internal/service"
	"github.com/Kerhoff/WishboT/internal/telegram"
)

var priorityMarks = map[models.Priority]string{
	models.PriorityHigh:   "🔥",
	models.PriorityMedium: "⭐",
	models.PriorityLow:    "🌱",
}

func esc(s string) string {
	return html.EscapeString(s)
}

func (b base) shareLink(token string) string {
	if b.botUsername == "" {
		return "w_" + token
	}
	return fmt.Sprintf("https://t.me/%s?start=w_%s", b.botUsername, token)
}

func (b base) itemLine(lang string, item *models.Item) string {
	line := priorityMarks[item.Priority] + " " + esc(item.Name)
	if item.Price != nil {
		line += " · " + item.Price.StringFixed(2)
	}
	if item.IsReserved() {
		line += " " + b.lex.T(lang, "reserved_mark")
	}
	return line
}

// renderWishlist builds the wishlist screen for the viewer's role.
func (b base) renderWishlist(lang string, view *service.WishlistView) (string, tgbotapi.InlineKeyboardMarkup) {
	w := view.Wishlist
	var sb strings.Builder

	fmt.Fprintf(&sb, "🎁 <b>%s</b>\n", esc(w.Title))
	fmt.Fprintf(&sb, "%s: %s\n", b.lex.T(lang, "created_by"), esc(w.Owner.DisplayName()))

	privacy := b.lex.T(lang, "public")
	if w.IsPrivate {
		privacy = b.lex.T(lang, "private")
	}

	var rows [][]tgbotapi.InlineKeyboardButton

	if view.Limited {
		fmt.Fprintf(&sb, "%s\n\n", privacy)
		if view.Role == access.PendingRequester {
			sb.WriteString(b.lex.T(lang, "wishlist_request_pending"))
		} else {
			sb.WriteString(b.lex.T(lang, "wishlist_limited"))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				telegram.Button(b.lex.T(lang, "btn_request_access"), telegram.CallbackSub, telegram.SubRequest, w.ID),
			))
		}
		return sb.String(), tgbotapi.NewInlineKeyboardMarkup(b.withMenu(lang, rows)...)
	}

	if w.Description != "" {
		fmt.Fprintf(&sb, "%s: %s\n", b.lex.T(lang, "description"), esc(w.Description))
	}
	if w.EventDate != nil {
		fmt.Fprintf(&sb, "%s: %s\n", b.lex.T(lang, "event_date"), w.EventDate.Format(draft.DateLayout))
	}
	fmt.Fprintf(&sb, "%s\n", privacy)

	if view.Role == access.Owner {
		fmt.Fprintf(&sb, "%s\n", b.lex.T(lang, "share_link", lexicon.Params{"link": b.shareLink(w.AccessToken)}))
	}

	sb.WriteString("\n")
	if len(view.Items) == 0 {
		sb.WriteString(b.lex.T(lang, "no_items_in_wishlist"))
	} else {
		sb.WriteString(b.lex.T(lang, "wishlist_items"))
		for i, item := range view.Items {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, b.itemLine(lang, item))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				telegram.Button(fmt.Sprintf("%d. %s", i+1, item.Name), telegram.CallbackItem, "view", item.ID),
			))
		}
	}

	switch {
	case view.Role == access.Owner:
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				telegram.Button(b.lex.T(lang, "btn_add_item"), telegram.CallbackForm, "new", "item", w.ID),
			),
			tgbotapi.NewInlineKeyboardRow(
				telegram.Button(b.lex.T(lang, "btn_edit_wishlist"), telegram.CallbackForm, "open", "wishlist", w.ID),
				telegram.Button(b.lex.T(lang, "btn_delete_wishlist"), telegram.CallbackWishlist, "del", w.ID),
			),
			tgbotapi.NewInlineKeyboardRow(
				telegram.Button(b.lex.T(lang, "btn_requests", lexicon.Params{"count": fmt.Sprint(view.PendingCount)}), telegram.CallbackSub, telegram.SubPending, w.ID),
				telegram.Button(b.lex.T(lang, "btn_subscribers", lexicon.Params{"count": fmt.Sprint(view.SubscriberCount)}), telegram.CallbackSub, telegram.SubFollowers, w.ID),
			),
		)
	case view.Subscription.IsApproved():
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			telegram.Button(b.lex.T(lang, "btn_unsubscribe"), telegram.CallbackSub, telegram.SubLeave, w.ID),
		))
	case !w.IsPrivate:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			telegram.Button(b.lex.T(lang, "btn_follow"), telegram.CallbackSub, telegram.SubRequest, w.ID),
		))
	}

	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(b.withMenu(lang, rows)...)
}

func (b base) withMenu(lang string, rows [][]tgbotapi.InlineKeyboardButton) [][]tgbotapi.InlineKeyboardButton {
	return append(rows, tgbotapi.NewInlineKeyboardRow(
		telegram.Button(b.lex.T(lang, "btn_main_menu"), telegram.CallbackMenu, "main"),
	))
}

// renderItem builds the item card.
func (b base) renderItem(lang string, item *models.Item, view *service.WishlistView, viewerID int64) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>%s</b>\n", priorityMarks[item.Priority], esc(item.Name))
	fmt.Fprintf(&sb, "%s: %s\n", b.lex.T(lang, "field_priority"), b.lex.T(lang, "priority_"+string(item.Priority)))
	if item.Description != "" {
		fmt.Fprintf(&sb, "%s: %s\n", b.lex.T(lang, "description"), esc(item.Description))
	}
	if item.Price != nil {
		fmt.Fprintf(&sb, "%s: %s\n", b.lex.T(lang, "field_price"), item.Price.StringFixed(2))
	}
	if item.Link != "" {
		fmt.Fprintf(&sb, "%s: %s\n", b.lex.T(lang, "field_link"), esc(item.Link))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	switch {
	case view.Role == access.Owner:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			telegram.Button(b.lex.T(lang, "btn_edit_item"), telegram.CallbackForm, "open", "item", item.ID),
			telegram.Button(b.lex.T(lang, "btn_delete_item"), telegram.CallbackItem, "del", item.ID),
		))
	case item.ReservedByID != nil && *item.ReservedByID == viewerID:
		sb.WriteString(b.lex.T(lang, "item_reserved_by_you"))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			telegram.Button(b.lex.T(lang, "btn_unreserve"), telegram.CallbackItem, "unres", item.ID),
		))
	case item.IsReserved():
		sb.WriteString(b.lex.T(lang, "item_reserved"))
	case view.Role.CanReserve():
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			telegram.Button(b.lex.T(lang, "btn_reserve"), telegram.CallbackItem, "res", item.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		telegram.Button(b.lex.T(lang, "back_to_wishlist"), telegram.CallbackWishlist, "view", item.WishlistID),
	))

	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b base) valueOrDash(lang string, v *string) string {
	if v == nil || *v == "" {
		return b.lex.T(lang, "not_specified")
	}
	return esc(*v)
}

func (b base) fieldButton(lang, field, value string) tgbotapi.InlineKeyboardButton {
	return telegram.Button(b.lex.T(lang, "field_"+field)+": "+value, telegram.CallbackForm, "edit", field)
}

// renderDraft builds the form preview with one button per field.
func (b base) renderDraft(lang string, d *draft.Draft) (string, tgbotapi.InlineKeyboardMarkup) {
	v := d.Values
	var (
		text string
		rows [][]tgbotapi.InlineKeyboardButton
	)

	if d.Kind == draft.KindItem {
		text = b.lex.T(lang, "item_form")
		if d.Editing {
			text = b.lex.T(lang, "item_form_edit")
		}

		priority := b.lex.T(lang, "not_specified")
		if v.Priority != nil {
			priority = b.lex.T(lang, "priority_"+string(*v.Priority))
		}
		photo := b.lex.T(lang, "not_specified")
		if v.PhotoID != nil && *v.PhotoID != "" {
			photo = "✅"
		}

		rows = [][]tgbotapi.InlineKeyboardButton{
			{b.fieldButton(lang, form.FieldName, b.valueOrDash(lang, v.Name))},
			{b.fieldButton(lang, form.FieldDescription, b.valueOrDash(lang, v.Description))},
			{b.fieldButton(lang, form.FieldPrice, b.valueOrDash(lang, v.Price))},
			{b.fieldButton(lang, form.FieldLink, b.valueOrDash(lang, v.Link))},
			{b.fieldButton(lang, form.FieldPriority, priority)},
			{b.fieldButton(lang, form.FieldPhoto, photo)},
		}
	} else {
		text = b.lex.T(lang, "wishlist_form")
		if d.Editing {
			text = b.lex.T(lang, "wishlist_form_edit")
		}

		privacy := b.lex.T(lang, "not_specified")
		if v.Private != nil {
			privacy = b.lex.T(lang, "public")
			if *v.Private {
				privacy = b.lex.T(lang, "private")
			}
		}
		date := v.DisplayDate()
		if date == "" {
			date = b.lex.T(lang, "not_specified")
		}

		rows = [][]tgbotapi.InlineKeyboardButton{
			{b.fieldButton(lang, form.FieldTitle, b.valueOrDash(lang, v.Title))},
			{b.fieldButton(lang, form.FieldDescription, b.valueOrDash(lang, v.Description))},
			{b.fieldButton(lang, form.FieldEventDate, date)},
			{b.fieldButton(lang, form.FieldPrivacy, privacy)},
		}
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		telegram.Button(b.lex.T(lang, "confirm"), telegram.CallbackForm, "ok"),
		telegram.Button(b.lex.T(lang, "cancel"), telegram.CallbackForm, "cancel"),
	))
	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// fieldPrompt asks for the field the draft has just opened.
func (b base) fieldPrompt(lang string, d *draft.Draft) (string, *tgbotapi.InlineKeyboardMarkup) {
	field := d.EditingField()
	cancel := telegram.Button(b.lex.T(lang, "cancel"), telegram.CallbackForm, "cancel")

	switch field {
	case form.FieldPrivacy:
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				telegram.Button(b.lex.T(lang, "private"), telegram.CallbackForm, "choose", draft.ChoicePrivate),
				telegram.Button(b.lex.T(lang, "public"), telegram.CallbackForm, "choose", draft.ChoicePublic),
			),
			tgbotapi.NewInlineKeyboardRow(cancel),
		)
		return b.lex.T(lang, "prompt_privacy"), &kb

	case form.FieldPriority:
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				telegram.Button(b.lex.T(lang, "priority_high"), telegram.CallbackForm, "choose", string(models.PriorityHigh)),
				telegram.Button(b.lex.T(lang, "priority_medium"), telegram.CallbackForm, "choose", string(models.PriorityMedium)),
				telegram.Button(b.lex.T(lang, "priority_low"), telegram.CallbackForm, "choose", string(models.PriorityLow)),
			),
			tgbotapi.NewInlineKeyboardRow(cancel),
		)
		return b.lex.T(lang, "prompt_priority"), &kb

	case form.FieldPhoto:
		row := tgbotapi.NewInlineKeyboardRow(cancel)
		if v := d.Values.PhotoID; v != nil && *v != "" {
			row = append([]tgbotapi.InlineKeyboardButton{
				telegram.Button(b.lex.T(lang, "btn_remove_photo"), telegram.CallbackForm, "nophoto"),
			}, row...)
		}
		kb := tgbotapi.NewInlineKeyboardMarkup(row)
		return b.lex.T(lang, "prompt_photo"), &kb
	}

	text := b.lex.T(lang, "prompt_"+field)
	if field != form.FieldTitle && field != form.FieldName {
		text += "\n" + b.lex.T(lang, "prompt_clear_hint", lexicon.Params{"clear": draft.ClearValue})
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(cancel))
	return text, &kb
}
