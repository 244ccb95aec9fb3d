package service

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrReloadInProgress rejects a reload while another is running; the
	// caller retries once the current rebuild publishes.
	ErrReloadInProgress = errors.New("reload already in progress")

	// ErrTimeout marks a query that exceeded the configured budget.
	ErrTimeout = errors.New("query timed out")

	// ErrNotStarted guards calls made before Start has published a catalog.
	ErrNotStarted = errors.New("service not started")

	// ErrAlreadyStarted rejects a second Start on a running service.
	ErrAlreadyStarted = errors.New("service already started")
)
