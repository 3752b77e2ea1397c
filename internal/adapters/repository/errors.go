package repository

import "errors"

// Sentinel kinds for session errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrWardrobeFull    = errors.New("wardrobe is full")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidItem     = errors.New("invalid item")
)
