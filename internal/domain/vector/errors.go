package vector

import "errors"

// Sentinel kinds for vector errors.
var (
	ErrInsufficientDimensions = errors.New("insufficient shared dimensions")
)
