// Package repository holds session state: quiz answers, wardrobe items and the last preview.
package repository

import (
	"context"

	"github.com/okian/stylist/internal/domain/model"
)

// Stats is a point-in-time count across all sessions.
type Stats struct {
	Sessions int
	Items    int
	Pending  int
}

// Store provides read/write access to sessions.
// Every returned Session is a snapshot; later writes do not show through it.
type Store interface {
	// Create starts an empty session.
	Create(ctx context.Context) (model.Session, error)
	// Get returns a session. Returns ErrSessionNotFound if unknown or expired.
	Get(ctx context.Context, id string) (model.Session, error)
	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// RecordAnswer sets the answer to question idx. Questions are answered in order.
	RecordAnswer(ctx context.Context, id string, idx int, answer string) (model.Session, error)
	// ResetQuiz clears all answers.
	ResetQuiz(ctx context.Context, id string) (model.Session, error)

	// AddItem appends item. An item without a colour counts as pending.
	// Returns ErrWardrobeFull once the cap is reached.
	AddItem(ctx context.Context, id string, item model.Item) (model.Session, error)
	// RemoveItem deletes an item.
	RemoveItem(ctx context.Context, id, itemID string) (model.Session, error)
	// Relabel changes an item's category and keeps its colour.
	Relabel(ctx context.Context, id, itemID string, category model.Category) (model.Item, error)
	// SetColor completes the extraction of an item. Items removed meanwhile are ignored.
	SetColor(ctx context.Context, id, itemID, color string) error
	// AwaitColors blocks until no item of the session is pending or ctx is done.
	AwaitColors(ctx context.Context, id string) error

	// SetPreview stores the last rendered outfit.
	SetPreview(ctx context.Context, id string, preview model.Preview) error

	// Stats counts sessions, items and pending extractions.
	Stats(ctx context.Context) Stats
}
