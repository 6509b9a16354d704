package services

import "errors"

// Engine error taxonomy. Every error is scoped to a single request;
// handlers translate these to HTTP statuses with errors.Is.
var (
	// ErrInvalidParameters rejects out-of-range stake, mine count or
	// client seed before any state mutation.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrInsufficientBalance means the ledger refused the stake debit;
	// no session was created.
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrSessionNotFound = errors.New("session not found")
	ErrForbidden       = errors.New("session belongs to another player")
	ErrSessionClosed   = errors.New("session already closed")
	ErrInvalidCell     = errors.New("invalid or already revealed tile")

	// ErrNothingRevealed rejects a cash-out on a round with zero safe
	// reveals.
	ErrNothingRevealed = errors.New("no tiles revealed")

	// ErrLedgerFailure is a transport-level wallet error. Any state
	// change it interrupted has been compensated; the caller may retry.
	ErrLedgerFailure = errors.New("ledger operation failed")

	// ErrConcurrencyConflict means the request lost the per-session
	// race. Retry the same operation; never resubmit a different tile
	// blindly.
	ErrConcurrencyConflict = errors.New("concurrent operation on session")

	ErrRateLimited = errors.New("rate limit exceeded")
)
