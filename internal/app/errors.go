package service

import "errors"

var (
	// ErrNotStarted is returned by operations called before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidImage is returned for uploads that are not images.
	ErrInvalidImage = errors.New("upload is not an image")
	// ErrNoPreview is returned when no outfit has been generated yet.
	ErrNoPreview = errors.New("no preview generated")
	// ErrUploadInProgress is returned for a retry that arrives while the first
	// upload with the same key is still being stored.
	ErrUploadInProgress = errors.New("upload with this key is in progress")
)
