package config

import "errors"

// Sentinel errors returned by Load and Validate.
var (
	// ErrInvalidConfig wraps every rule Validate found broken.
	ErrInvalidConfig = errors.New("invalid stylist config")
	// ErrLoadConfig wraps file, env and unmarshal failures.
	ErrLoadConfig = errors.New("load stylist config")
)
