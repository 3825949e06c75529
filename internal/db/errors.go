package db

import "errors"

// Error taxonomy surfaced to callers. Driver-native errors never escape this
// package; every failure wraps exactly one of these sentinels so callers can
// branch with errors.Is.
var (
	// ErrInvalidStatement indicates that the query verb does not match the
	// calling method (e.g. ExecuteSelect got an UPDATE)
	ErrInvalidStatement = errors.New("invalid statement kind")

	// ErrInvalidBatch indicates a malformed batch: empty input or rows of
	// unequal arity
	ErrInvalidBatch = errors.New("invalid batch shape")

	// ErrInvalidIdentifier indicates a table name with characters outside
	// alphanumerics, underscore and hyphen
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrNoInsertID indicates that the store reported no generated row id
	ErrNoInsertID = errors.New("insert did not return a row id")

	// ErrConstraint indicates a constraint violation (UNIQUE, NOT NULL, ...)
	ErrConstraint = errors.New("constraint violation")

	// ErrLocked indicates lock contention; the caller may retry
	ErrLocked = errors.New("database is locked")

	// ErrUnknownTable indicates that the referenced table does not exist
	ErrUnknownTable = errors.New("table does not exist")

	// ErrSyntax indicates a SQL syntax error
	ErrSyntax = errors.New("sql syntax error")

	// ErrOperational indicates an operational driver error not covered above
	ErrOperational = errors.New("operational error")

	// ErrDatabase is the generic fallback for any other store failure
	ErrDatabase = errors.New("database error")
)
