package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrForeignKey is a foreign key violation.
	ErrForeignKey = errors.New("referenced record does not exist")
	// ErrStaleState means a conditional update found a different status.
	ErrStaleState = errors.New("record state changed concurrently")
)
