package similarity

import "errors"

// ErrInvalidLimit rejects non-positive neighbor counts.
var ErrInvalidLimit = errors.New("neighbor limit must be positive")
