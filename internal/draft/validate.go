package draft

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Kerhoff/WishboT/internal/form"
	"github.com/Kerhoff/WishboT/internal/models"
	apperrors "github.com/Kerhoff/WishboT/pkg/errors"
)

// ClearValue typed as a field value empties an optional field.
const ClearValue = "-"

const (
	// DateLayout is the user-facing date format.
	DateLayout = "02.01.2006"
	isoDate    = "2006-01-02"
)

// Lexicon keys for field-level validation errors.
const (
	KeyTitleLength       = "title_length"
	KeyDescriptionLength = "description_length"
	KeyNameLength        = "name_length"
	KeyLinkInvalid       = "link_invalid"
	KeyPriceInvalid      = "price_invalid"
	KeyDateInvalid       = "date_invalid"
	KeyDateInPast        = "date_in_past"
	KeyPrivacyInvalid    = "privacy_invalid"
	KeyPriorityInvalid   = "priority_invalid"
	KeyFieldRequired     = "field_required"
)

// Privacy choices.
const (
	ChoicePrivate = "private"
	ChoicePublic  = "public"
)

var maxPrice = decimal.RequireFromString("999999999999.99")

var validate = validator.New()

func checkVar(value any, tag, field, key, message string) error {
	if err := validate.Var(value, tag); err != nil {
		return apperrors.Validation(field, key, message)
	}
	return nil
}

// normalizeField validates raw input for field and returns the value to
// store. today is the first instant of the current day.
func normalizeField(field, raw string, today time.Time) (string, error) {
	value := strings.TrimSpace(raw)
	clear := value == ClearValue

	switch field {
	case form.FieldTitle:
		return value, checkVar(value, "required,min=4,max=50", field, KeyTitleLength, "title must be 4-50 characters")

	case form.FieldName:
		return value, checkVar(value, "required,min=1,max=50", field, KeyNameLength, "name must be 1-50 characters")

	case form.FieldDescription:
		if clear {
			return "", nil
		}
		return value, checkVar(value, "max=300", field, KeyDescriptionLength, "description is longer than 300 characters")

	case form.FieldLink:
		if clear {
			return "", nil
		}
		return value, checkVar(value, "required,max=2048,http_url", field, KeyLinkInvalid, "link must be an http or https URL")

	case form.FieldPrice:
		if clear {
			return "", nil
		}
		price, err := decimal.NewFromString(strings.ReplaceAll(value, ",", "."))
		if err != nil || price.IsNegative() || price.Exponent() < -2 || price.GreaterThan(maxPrice) {
			return "", apperrors.Validation(field, KeyPriceInvalid, "price must be a non-negative amount")
		}
		return price.String(), nil

	case form.FieldEventDate:
		if clear {
			return "", nil
		}
		date, err := time.ParseInLocation(DateLayout, value, today.Location())
		if err != nil {
			return "", apperrors.Validation(field, KeyDateInvalid, "date must look like DD.MM.YYYY")
		}
		if date.Before(today) {
			return "", apperrors.Validation(field, KeyDateInPast, "date is in the past")
		}
		return date.Format(isoDate), nil
	}

	return "", apperrors.Validation(field, apperrors.MetadataFor(apperrors.CodeValidation).LexiconKey, "field does not take text input")
}

func parsePrivacy(choice string) (bool, error) {
	switch choice {
	case ChoicePrivate:
		return true, nil
	case ChoicePublic:
		return false, nil
	}
	return false, apperrors.Validation(form.FieldPrivacy, KeyPrivacyInvalid, "unknown privacy choice")
}

func parsePriority(choice string) (models.Priority, error) {
	p, ok := models.ParsePriority(choice)
	if !ok {
		return "", apperrors.Validation(form.FieldPriority, KeyPriorityInvalid, "unknown priority")
	}
	return p, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
