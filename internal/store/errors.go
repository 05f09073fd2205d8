package store

import (
	"errors"
	"fmt"
)

// Base sentinels. Every specific error below wraps one of them, so callers
// can match either the precise or the general condition with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrConflict      = errors.New("conflict")
)

// Specific sentinels.
var (
	ErrFlatNotFound        = fmt.Errorf("flat %w", ErrNotFound)
	ErrJoinRequestNotFound = fmt.Errorf("join request %w", ErrNotFound)
	ErrEventNotFound       = fmt.Errorf("event %w", ErrNotFound)

	ErrPendingRequestExists = fmt.Errorf("pending join request %w", ErrAlreadyExists)
	ErrJoinRequestResolved  = fmt.Errorf("join request already resolved: %w", ErrConflict)
)
