// Package types contains the JSON views returned by the API and printed by the CLI.
package types

import (
	"time"

	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/palette"
)

// Upload is one garment image submitted by a user.
type Upload struct {
	Category model.Category
	Image    []byte
	// UploadID makes retries idempotent within a session. Optional.
	UploadID string
}

// ItemView is one wardrobe row.
type ItemView struct {
	ID       string    `json:"id"`
	Category string    `json:"category"`
	Label    string    `json:"label"`
	Color    string    `json:"color,omitempty"`
	Pending  bool      `json:"pending"`
	AddedAt  time.Time `json:"added_at"`
}

// NewItemView builds the view of it.
func NewItemView(it model.Item) ItemView {
	return ItemView{
		ID:       it.ID,
		Category: string(it.Category),
		Label:    it.Category.Label(),
		Color:    it.Color,
		Pending:  it.Pending(),
		AddedAt:  it.AddedAt,
	}
}

// SessionView is a session without image bytes.
type SessionView struct {
	ID           string     `json:"id"`
	Answers      []string   `json:"answers"`
	QuizComplete bool       `json:"quiz_complete"`
	Items        []ItemView `json:"items"`
	Pending      int        `json:"pending"`
	HasPreview   bool       `json:"has_preview"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewSessionView builds the view of s.
func NewSessionView(s model.Session, quizComplete bool) SessionView {
	items := make([]ItemView, len(s.Items))
	for i, it := range s.Items {
		items[i] = NewItemView(it)
	}
	answers := s.Answers
	if answers == nil {
		answers = []string{}
	}
	return SessionView{
		ID:           s.ID,
		Answers:      answers,
		QuizComplete: quizComplete,
		Items:        items,
		Pending:      s.Pending,
		HasPreview:   s.Preview != nil,
		UpdatedAt:    s.UpdatedAt,
	}
}

// SwatchRow is one line under the preview: the category label and its colour.
type SwatchRow struct {
	ItemID string `json:"item_id"`
	Label  string `json:"label"`
	Color  string `json:"color"`
}

// OutfitView is the result of a selection.
type OutfitView struct {
	Kind       string      `json:"kind"`
	Score      float64     `json:"score"`
	Rows       []SwatchRow `json:"rows"`
	Rationale  string      `json:"rationale"`
	PreviewURL string      `json:"preview_url,omitempty"`
}

// NewOutfitView builds the view of o. Pending colours show as the neutral default.
func NewOutfitView(o model.Outfit, rationale, previewURL string) OutfitView {
	rows := make([]SwatchRow, len(o.Items))
	for i, it := range o.Items {
		rows[i] = SwatchRow{
			ItemID: it.ID,
			Label:  it.Category.Label(),
			Color:  palette.Resolve(it.Color),
		}
	}
	return OutfitView{
		Kind:       string(o.Kind),
		Score:      o.Score,
		Rows:       rows,
		Rationale:  rationale,
		PreviewURL: previewURL,
	}
}

// Stats is the service snapshot served on /stats.
type Stats struct {
	Sessions       int     `json:"sessions"`
	Items          int     `json:"items"`
	PendingColors  int     `json:"pending_colors"`
	QueueDepth     int     `json:"queue_depth"`
	QueueCapacity  int     `json:"queue_capacity"`
	Workers        int     `json:"workers"`
	Selections     int64   `json:"selections"`
	Extractions    int64   `json:"extractions"`
	Fallbacks      int64   `json:"fallbacks"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	DedupeSize     int     `json:"dedupe_size"`
	MaxItems       int     `json:"max_items"`
	SessionTTLSecs float64 `json:"session_ttl_seconds"`
}
