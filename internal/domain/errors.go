package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error the core returns to callers wraps one of these so
// handlers can map them without knowing the concrete failure.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Sleep session errors
var (
	ErrNoSessionToClose   = fmt.Errorf("%w: no session to close", ErrNotFound)
	ErrSessionCompleted   = fmt.Errorf("%w: already completed", ErrConflict)
	ErrSessionAlreadyOpen = fmt.Errorf("%w: session already open", ErrConflict)
	ErrSessionNotFound    = fmt.Errorf("%w: sleep session not found", ErrNotFound)
)

// User and graph errors
var (
	ErrUserNotFound     = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrDisplayNameTaken = fmt.Errorf("%w: display name already exists", ErrConflict)
	ErrCannotFollowSelf = fmt.Errorf("%w: cannot follow yourself", ErrConflict)
	ErrAlreadyFollowing = fmt.Errorf("%w: already following this user", ErrConflict)
	ErrNotFollowing     = fmt.Errorf("%w: not following this user", ErrConflict)
)
