package domain

import "errors"

var (
	// ErrInvalidInput is returned by pure helpers given input they cannot work with.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidGeometry is returned when a vertex sequence is outside the
	// allowed 3..12 range.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInvalidRule is returned for rules with an unknown operator or bad color.
	ErrInvalidRule = errors.New("invalid color rule")

	// ErrInvalidDataSource is returned for data sources missing a name or field.
	ErrInvalidDataSource = errors.New("invalid data source")

	// ErrNotFound is returned when an entity ID does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrWrongMode is returned by timeline operations that require range mode.
	ErrWrongMode = errors.New("operation not valid in current timeline mode")

	// ErrNoDraft is returned by drawing operations when no draft is open.
	ErrNoDraft = errors.New("no region is being drawn")
)
