package repository

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrNoGeneration = errors.New("no catalog generation published")
)
