package domain

import "errors"

var (
	// ErrOrphanReview marks an insert that references a bank the store
	// does not know. The row is skipped and counted, never fatal.
	ErrOrphanReview = errors.New("review references unknown bank")

	// ErrDuplicateReview marks an insert whose natural key
	// (bank, text, date) is already present.
	ErrDuplicateReview = errors.New("duplicate review")
)
