// Package draft keeps the per-chat working copy of a wishlist or item while
// the user walks through its form.
package draft

import (
	"time"

	"github.com/Kerhoff/WishboT/internal/form"
	"github.com/Kerhoff/WishboT/internal/models"
)

// Kind says what a draft will become on commit.
type Kind string

const (
	KindWishlist Kind = "wishlist"
	KindItem     Kind = "item"
)

// Values are the form fields collected so far. A nil pointer means the user
// never touched the field; a pointer to "" means the field was cleared.
// Dates are kept as YYYY-MM-DD and prices in their canonical decimal form.
type Values struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	EventDate   *string          `json:"event_date,omitempty"`
	Private     *bool            `json:"private,omitempty"`
	Name        *string          `json:"name,omitempty"`
	Link        *string          `json:"link,omitempty"`
	Price       *string          `json:"price,omitempty"`
	Priority    *models.Priority `json:"priority,omitempty"`
	PhotoID     *string          `json:"photo_id,omitempty"`
}

// Draft is one chat's in-progress form.
type Draft struct {
	ChatID  int64 `json:"chat_id"`
	Kind    Kind  `json:"kind"`
	OwnerID int64 `json:"owner_id"`
	// TargetID is the row being edited; nil while creating.
	TargetID *int64 `json:"target_id,omitempty"`
	// WishlistID is the parent of an item draft.
	WishlistID       int64     `json:"wishlist_id,omitempty"`
	Editing          bool      `json:"editing"`
	PreviewMessageID int       `json:"preview_message_id,omitempty"`
	State            string    `json:"state"`
	Values           Values    `json:"values"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (d *Draft) WishlistState() form.WishlistState {
	return form.WishlistState(d.State)
}

func (d *Draft) ItemState() form.ItemState {
	return form.ItemState(d.State)
}

// EditingField returns the field the current state is waiting for, or "".
func (d *Draft) EditingField() string {
	if d.Kind == KindItem {
		return form.ItemField(d.ItemState())
	}
	return form.WishlistField(d.WishlistState())
}

// AwaitingText reports whether free text typed into the chat belongs to this
// draft.
func (d *Draft) AwaitingText() bool {
	switch d.EditingField() {
	case form.FieldPrivacy, form.FieldPriority, form.FieldPhoto, "":
		return false
	}
	return true
}

// AwaitingPhoto reports whether a photo sent to the chat belongs to this
// draft.
func (d *Draft) AwaitingPhoto() bool {
	return d.Kind == KindItem && d.ItemState() == form.ItemEditingPhoto
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ptr[T any](v T) *T {
	return &v
}

func valuesFromWishlist(w *models.Wishlist) Values {
	v := Values{
		Title:       ptr(w.Title),
		Description: ptr(w.Description),
		Private:     ptr(w.IsPrivate),
	}
	if w.EventDate != nil {
		v.EventDate = ptr(w.EventDate.Format(isoDate))
	} else {
		v.EventDate = ptr("")
	}
	return v
}

func valuesFromItem(i *models.Item) Values {
	v := Values{
		Name:        ptr(i.Name),
		Description: ptr(i.Description),
		Link:        ptr(i.Link),
		Priority:    ptr(i.Priority),
		PhotoID:     ptr(i.PhotoID),
		Price:       ptr(""),
	}
	if i.Price != nil {
		v.Price = ptr(i.Price.String())
	}
	return v
}

// DisplayDate renders the stored event date in DateLayout, or "" when unset.
func (v Values) DisplayDate() string {
	t, err := time.Parse(isoDate, str(v.EventDate))
	if err != nil {
		return ""
	}
	return t.Format(DateLayout)
}
