package form

// WishlistState is a step of the wishlist form.
type WishlistState string

const (
	WishlistCollecting         WishlistState = "collecting_fields"
	WishlistEditingTitle       WishlistState = "editing_title"
	WishlistEditingDescription WishlistState = "editing_description"
	WishlistEditingDate        WishlistState = "editing_date"
	WishlistTogglingPrivacy    WishlistState = "toggling_privacy"
	WishlistDone               WishlistState = "done"
)

// WishlistEvent is a user action on the wishlist form.
type WishlistEvent string

const (
	WishlistEditTitle       WishlistEvent = "edit_title"
	WishlistEditDescription WishlistEvent = "edit_description"
	WishlistEditDate        WishlistEvent = "edit_date"
	WishlistEditPrivacy     WishlistEvent = "edit_privacy"
	WishlistInput           WishlistEvent = "input"
	WishlistChoose          WishlistEvent = "choose"
	WishlistConfirm         WishlistEvent = "confirm"
	WishlistCancel          WishlistEvent = "cancel"
)

type wishlistRow = Transition[WishlistState, WishlistEvent]

// Wishlist is the wishlist form machine. From the field overview the user
// opens one field at a time, each text field returns to the overview on
// input, privacy returns on choose, and cancel is legal everywhere except
// done.
var Wishlist = NewMachine(WishlistCollecting,
	wishlistRow{WishlistCollecting, WishlistEditTitle, WishlistEditingTitle},
	wishlistRow{WishlistCollecting, WishlistEditDescription, WishlistEditingDescription},
	wishlistRow{WishlistCollecting, WishlistEditDate, WishlistEditingDate},
	wishlistRow{WishlistCollecting, WishlistEditPrivacy, WishlistTogglingPrivacy},
	wishlistRow{WishlistCollecting, WishlistConfirm, WishlistDone},
	wishlistRow{WishlistCollecting, WishlistCancel, WishlistDone},

	wishlistRow{WishlistEditingTitle, WishlistInput, WishlistCollecting},
	wishlistRow{WishlistEditingTitle, WishlistCancel, WishlistDone},

	wishlistRow{WishlistEditingDescription, WishlistInput, WishlistCollecting},
	wishlistRow{WishlistEditingDescription, WishlistCancel, WishlistDone},

	wishlistRow{WishlistEditingDate, WishlistInput, WishlistCollecting},
	wishlistRow{WishlistEditingDate, WishlistCancel, WishlistDone},

	wishlistRow{WishlistTogglingPrivacy, WishlistChoose, WishlistCollecting},
	wishlistRow{WishlistTogglingPrivacy, WishlistCancel, WishlistDone},
)

// WishlistField returns the draft field edited in state, or "".
func WishlistField(state WishlistState) string {
	switch state {
	case WishlistEditingTitle:
		return FieldTitle
	case WishlistEditingDescription:
		return FieldDescription
	case WishlistEditingDate:
		return FieldEventDate
	case WishlistTogglingPrivacy:
		return FieldPrivacy
	}
	return ""
}

// WishlistEditEvent returns the event that opens field.
func WishlistEditEvent(field string) (WishlistEvent, bool) {
	switch field {
	case FieldTitle:
		return WishlistEditTitle, true
	case FieldDescription:
		return WishlistEditDescription, true
	case FieldEventDate:
		return WishlistEditDate, true
	case FieldPrivacy:
		return WishlistEditPrivacy, true
	}
	return "", false
}
