// Package apperr defines the sentinel errors shared across layers.
package apperr

import "errors"

// Rejected operations. Callers treat these as "no change", never as faults.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrMaxLayersReached = errors.New("max layers reached")
	ErrUnfoldInProgress = errors.New("unfold already in progress")
	ErrTooManySessions  = errors.New("too many sessions")
	ErrInvalidRecipe    = errors.New("invalid recipe")
	ErrReadOnly         = errors.New("read only")
)

// Programming errors. These indicate a bug in the caller.
var (
	ErrInvalidFoldKind   = errors.New("invalid fold kind")
	ErrInvalidFoldParams = errors.New("invalid fold parameters")
	ErrUnknownLayer      = errors.New("unknown layer")
)
