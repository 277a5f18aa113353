package models

import "errors"

// Ledger error taxonomy. Callers match with errors.Is; wrap with
// fmt.Errorf("...: %w", Err...) to add context.
var (
	// ErrNotFound - item, category, warehouse or transaction does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation - malformed input, fractional or negative quantity
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock - a delta would take an item quantity below zero
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidRevert - target is already reverted or is itself a revert entry
	ErrInvalidRevert = errors.New("transaction cannot be reverted")

	// ErrAttributeMismatch - specs reference attributes outside the category schema
	ErrAttributeMismatch = errors.New("specs do not match category schema")

	// ErrConflict - deleting a warehouse/category still referenced by items
	ErrConflict = errors.New("resource is still referenced")
)
