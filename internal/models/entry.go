package models

import "time"

// Category classifies the kind of wealth an entry records.
type Category string

const (
	CategoryCash        Category = "Cash"
	CategoryGold        Category = "Gold"
	CategorySilver      Category = "Silver"
	CategoryBusiness    Category = "Business"
	CategoryAgriculture Category = "Agriculture"
	CategoryOther       Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryCash,
	CategoryGold,
	CategorySilver,
	CategoryBusiness,
	CategoryAgriculture,
	CategoryOther,
}

// DefaultCategory is preselected in new entry forms.
const DefaultCategory = CategoryCash

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Entry represents a recorded amount of wealth owned by a user.
type Entry struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Category    Category  `json:"category"`
	Description *string   `json:"description"`
	Date        time.Time `json:"date"`
	ZakatAmount float64   `json:"zakat_amount"`
	UserID      string    `json:"user_id"`
}

// DescriptionText returns the description or an empty string.
func (e Entry) DescriptionText() string {
	if e.Description == nil {
		return ""
	}
	return *e.Description
}

// EntryInput is the payload for creating an entry.
type EntryInput struct {
	Amount      float64    `json:"amount" validate:"gte=0"`
	Category    Category   `json:"category" validate:"required,category"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date,omitempty"`
}

// EntryUpdate is a partial update; nil fields are left unchanged.
type EntryUpdate struct {
	Amount      *float64   `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Category    *Category  `json:"category,omitempty" validate:"omitempty,category"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u EntryUpdate) IsEmpty() bool {
	return u.Amount == nil && u.Category == nil && u.Description == nil && u.Date == nil
}

// CategoryStats aggregates the entries of one category.
type CategoryStats struct {
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
	TotalZakat  float64 `json:"total_zakat"`
}

// Statistics is the per-user summary computed by the backend.
type Statistics struct {
	TotalAmount       float64                    `json:"total_amount"`
	TotalZakat        float64                    `json:"total_zakat"`
	TotalEntries      int                        `json:"total_entries"`
	CategoryBreakdown map[Category]CategoryStats `json:"category_breakdown"`
}
