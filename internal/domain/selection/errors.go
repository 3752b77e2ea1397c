package selection

import "errors"

// Selection outcomes other than success. All are user-correctable.
var (
	// ErrQuizIncomplete means fewer than three quiz answers are recorded.
	ErrQuizIncomplete = errors.New("quiz incomplete")
	// ErrEmptyWardrobe means there are no items at all.
	ErrEmptyWardrobe = errors.New("wardrobe is empty")
	// ErrInfeasible means the wardrobe has neither a dress nor a top and a bottom.
	ErrInfeasible = errors.New("no dress or top and bottom pair")
)
