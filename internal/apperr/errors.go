// Package apperr defines the sentinel errors shared across layers.
package apperr

import "errors"

// ErrNotFound means a content digest has no store entry.
var ErrNotFound = errors.New("not found")

// ErrInvalidArgument marks a request that is missing a required field.
var ErrInvalidArgument = errors.New("invalid argument")

// Project resolution and version parsing failures.
var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrDuplicateProject = errors.New("project already exists")
	ErrAmbiguousProject = errors.New("ambiguous project")
	ErrInvalidVersion   = errors.New("invalid version")
)
