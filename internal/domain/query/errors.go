package query

import "errors"

// Predicate validation errors.
var (
	ErrUnknownPosition    = errors.New("unknown position")
	ErrUnknownOp          = errors.New("unknown operator")
	ErrEmptyAttributeName = errors.New("empty attribute name")
	ErrInvalidRange       = errors.New("range minimum exceeds maximum")
)
