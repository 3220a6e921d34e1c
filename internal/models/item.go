package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item length limits
const (
	ItemNameMin        = 1
	ItemNameMax        = 50
	ItemDescriptionMax = 300
	ItemLinkMax        = 2048
)

// Priority represents how much the owner wants an item
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority returns the priority named by s
func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), true
	}
	return "", false
}

// Rank orders priorities from high to low for display
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Item represents a gift in a wishlist
type Item struct {
	ID           int64            `json:"id" db:"id"`
	WishlistID   int64            `json:"wishlist_id" db:"wishlist_id"`
	Name         string           `json:"name" db:"name"`
	Description  string           `json:"description" db:"description"`
	PhotoID      string           `json:"photo_id" db:"photo_id"`
	Price        *decimal.Decimal `json:"price" db:"price"`
	Link         string           `json:"link" db:"link"`
	Priority     Priority         `json:"priority" db:"priority"`
	ReservedByID *int64           `json:"reserved_by_id" db:"reserved_by_id"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// IsReserved returns true if somebody promised to bring the item
func (i *Item) IsReserved() bool {
	return i.ReservedByID != nil
}

// ItemChanges carries the editable fields of an item update
type ItemChanges struct {
	Name        string
	Description string
	PhotoID     string
	Price       *decimal.Decimal
	Link        string
	Priority    Priority
}

// Apply copies the changes onto i
func (c ItemChanges) Apply(i *Item) {
	i.Name = c.Name
	i.Description = c.Description
	i.PhotoID = c.PhotoID
	i.Price = c.Price
	i.Link = c.Link
	i.Priority = c.Priority
}
