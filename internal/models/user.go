package models

import "time"

// Supported interface languages
const (
	LanguageEnglish = "en"
	LanguageRussian = "ru"
)

// User represents a Telegram user in the system
type User struct {
	ID               int64     `json:"id" db:"id"`
	TelegramID       int64     `json:"telegram_id" db:"telegram_id"`
	TelegramUsername string    `json:"telegram_username" db:"telegram_username"`
	FirstName        string    `json:"first_name" db:"first_name"`
	Language         string    `json:"language" db:"language"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the best display name for the user
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.TelegramUsername != "" {
		return "@" + u.TelegramUsername
	}
	return u.FirstName
}

// IsSupportedLanguage reports whether the bot has a lexicon for lang
func IsSupportedLanguage(lang string) bool {
	return lang == LanguageEnglish || lang == LanguageRussian
}
