package model

import "time"

// Session is one user's quiz answers and wardrobe.
// Values handed out by the store are snapshots; callers must not mutate shared slices.
type Session struct {
	ID        string
	Answers   []string
	Items     []Item
	Pending   int // colour extractions still in flight
	Preview   *Preview
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item returns the item with the given id.
func (s Session) Item(id string) (Item, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Preview is the last rendered composite for a session.
type Preview struct {
	Outfit      Outfit
	Rationale   string
	Image       []byte
	ContentType string
	CreatedAt   time.Time
}
