package model

// Role is the slot a garment occupies while it is being scored.
type Role int

// Scoring roles. Exactly one applies per scoring call.
const (
	RoleTop Role = iota
	RoleBottom
	RoleDress
	RoleShoe
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleTop:
		return "top"
	case RoleBottom:
		return "bottom"
	case RoleDress:
		return "dress"
	case RoleShoe:
		return "shoe"
	default:
		return "unknown"
	}
}

// OutfitKind tells a dress-based outfit from a top+bottom one.
type OutfitKind string

// Outfit kinds.
const (
	OutfitDress     OutfitKind = "dress"
	OutfitSeparates OutfitKind = "separates"
)

// Outfit is an ordered outfit candidate: (dress[, shoe]) or (top, bottom[, shoe]).
type Outfit struct {
	Kind  OutfitKind
	Items []Item
	// Score covers the dress or top+bottom part; an appended shoe never contributes.
	Score float64
}

// HasShoe reports whether a shoe was appended to the outfit.
func (o Outfit) HasShoe() bool {
	n := len(o.Items)
	return n > 0 && o.Items[n-1].Category == CategoryShoes
}

// ScoredCandidate pairs a candidate with its score.
type ScoredCandidate struct {
	Candidate Outfit
	Score     float64
}
