package form

// Draft field names shared by the forms, the draft store and the chat
// buttons.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldEventDate   = "event_date"
	FieldPrivacy     = "privacy"

	FieldName     = "name"
	FieldLink     = "link"
	FieldPrice    = "price"
	FieldPriority = "priority"
	FieldPhoto    = "photo"
)
