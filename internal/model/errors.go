package model

import "errors"

var (
	// ErrNotFound is returned when a referenced loan, item or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when an action does not apply to the
	// loan's current status.
	ErrInvalidTransition = errors.New("invalid loan transition")

	// ErrInsufficientStock is returned when approving a loan for an item
	// with no available stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConflict is returned by a store when a compare-and-swap commit lost
	// against a concurrent writer.
	ErrConflict = errors.New("concurrent modification")

	// ErrConflictRetryExhausted is returned when a transition could not be
	// committed within the retry budget. The operation may be retried.
	ErrConflictRetryExhausted = errors.New("conflict retry budget exhausted")

	// ErrItemInUse is returned when deleting or shrinking an item that still
	// has pending or approved loans.
	ErrItemInUse = errors.New("item has open loans")

	// ErrInvalidItem is returned for item fields that fail validation.
	ErrInvalidItem = errors.New("invalid item")
)
