// Package store contains the persistence backends: MongoDB for expenses and
// users, PostgreSQL as an alternative user store, Redis for the expense list
// cache, MinIO for receipt files and an in-memory store for local runs.
package store

import "errors"

var (
	// ErrNotFound is returned when no record matches the requested id or filter.
	// A malformed id is reported the same way.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate key")
)
