// Package model contains domain models passed between layers.
package model

import "time"

// Category is the wardrobe slot a user assigns to an uploaded garment.
type Category string

// Supported wardrobe categories.
const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryDress     Category = "dress"
	CategoryOuter     Category = "outer"
	CategoryShoes     Category = "shoes"
	CategoryAccessory Category = "accessory"
)

// categoryLabels holds the user-facing label for each category, in menu order.
var categoryLabels = []struct {
	category Category
	label    string
}{
	{CategoryTop, "Топ / Верх"},
	{CategoryBottom, "Низ (брюки, юбка)"},
	{CategoryDress, "Платье / Комбинезон"},
	{CategoryOuter, "Верхняя одежда"},
	{CategoryShoes, "Обувь"},
	{CategoryAccessory, "Аксессуары"},
}

// Categories returns all categories in menu order.
func Categories() []Category {
	out := make([]Category, len(categoryLabels))
	for i, c := range categoryLabels {
		out[i] = c.category
	}
	return out
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c.Label() != ""
}

// Label returns the display label for c, or "" for unknown categories.
func (c Category) Label() string {
	for _, cl := range categoryLabels {
		if cl.category == c {
			return cl.label
		}
	}
	return ""
}

// Item is a garment in a user's wardrobe.
type Item struct {
	ID          string    // opaque identifier
	Category    Category  // user-assigned slot
	Color       string    // representative hex colour; "" while extraction is pending
	Image       []byte    // encoded image as uploaded
	ContentType string    // sniffed MIME type of Image
	AddedAt     time.Time // upload time
}

// Pending reports whether the representative colour has not been extracted yet.
func (i Item) Pending() bool {
	return i.Color == ""
}
