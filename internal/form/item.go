package form

// ItemState is a step of the item form.
type ItemState string

const (
	ItemCollecting         ItemState = "collecting_fields"
	ItemEditingName        ItemState = "editing_name"
	ItemEditingDescription ItemState = "editing_description"
	ItemEditingLink        ItemState = "editing_link"
	ItemEditingPrice       ItemState = "editing_price"
	ItemEditingPriority    ItemState = "editing_priority"
	ItemEditingPhoto       ItemState = "editing_photo"
	ItemRemovingPhoto      ItemState = "removing_photo"
	ItemDone               ItemState = "done"
)

// ItemEvent is a user action on the item form.
type ItemEvent string

const (
	ItemEditName        ItemEvent = "edit_name"
	ItemEditDescription ItemEvent = "edit_description"
	ItemEditLink        ItemEvent = "edit_link"
	ItemEditPrice       ItemEvent = "edit_price"
	ItemEditPriority    ItemEvent = "edit_priority"
	ItemEditPhoto       ItemEvent = "edit_photo"
	ItemInput           ItemEvent = "input"
	ItemPhoto           ItemEvent = "photo"
	ItemChoose          ItemEvent = "choose"
	ItemRemovePhoto     ItemEvent = "remove_photo"
	ItemPhotoRemoved    ItemEvent = "photo_removed"
	ItemConfirm         ItemEvent = "confirm"
	ItemCancel          ItemEvent = "cancel"
)

type itemRow = Transition[ItemState, ItemEvent]

// Item is the item form machine. The photo step accepts a photo or a request
// to drop the current one, which passes through removing_photo until the
// removal is acknowledged.
var Item = NewMachine(ItemCollecting,
	itemRow{ItemCollecting, ItemEditName, ItemEditingName},
	itemRow{ItemCollecting, ItemEditDescription, ItemEditingDescription},
	itemRow{ItemCollecting, ItemEditLink, ItemEditingLink},
	itemRow{ItemCollecting, ItemEditPrice, ItemEditingPrice},
	itemRow{ItemCollecting, ItemEditPriority, ItemEditingPriority},
	itemRow{ItemCollecting, ItemEditPhoto, ItemEditingPhoto},
	itemRow{ItemCollecting, ItemConfirm, ItemDone},
	itemRow{ItemCollecting, ItemCancel, ItemDone},

	itemRow{ItemEditingName, ItemInput, ItemCollecting},
	itemRow{ItemEditingName, ItemCancel, ItemDone},

	itemRow{ItemEditingDescription, ItemInput, ItemCollecting},
	itemRow{ItemEditingDescription, ItemCancel, ItemDone},

	itemRow{ItemEditingLink, ItemInput, ItemCollecting},
	itemRow{ItemEditingLink, ItemCancel, ItemDone},

	itemRow{ItemEditingPrice, ItemInput, ItemCollecting},
	itemRow{ItemEditingPrice, ItemCancel, ItemDone},

	itemRow{ItemEditingPriority, ItemChoose, ItemCollecting},
	itemRow{ItemEditingPriority, ItemCancel, ItemDone},

	itemRow{ItemEditingPhoto, ItemPhoto, ItemCollecting},
	itemRow{ItemEditingPhoto, ItemRemovePhoto, ItemRemovingPhoto},
	itemRow{ItemEditingPhoto, ItemCancel, ItemDone},

	itemRow{ItemRemovingPhoto, ItemPhotoRemoved, ItemCollecting},
	itemRow{ItemRemovingPhoto, ItemCancel, ItemDone},
)

// ItemField returns the draft field edited in state, or "".
func ItemField(state ItemState) string {
	switch state {
	case ItemEditingName:
		return FieldName
	case ItemEditingDescription:
		return FieldDescription
	case ItemEditingLink:
		return FieldLink
	case ItemEditingPrice:
		return FieldPrice
	case ItemEditingPriority:
		return FieldPriority
	case ItemEditingPhoto, ItemRemovingPhoto:
		return FieldPhoto
	}
	return ""
}

// ItemEditEvent returns the event that opens field.
func ItemEditEvent(field string) (ItemEvent, bool) {
	switch field {
	case FieldName:
		return ItemEditName, true
	case FieldDescription:
		return ItemEditDescription, true
	case FieldLink:
		return ItemEditLink, true
	case FieldPrice:
		return ItemEditPrice, true
	case FieldPriority:
		return ItemEditPriority, true
	case FieldPhoto:
		return ItemEditPhoto, true
	}
	return "", false
}
