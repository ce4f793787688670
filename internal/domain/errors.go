package domain

import "errors"

var (
	ErrNotFound          = errors.New("entity not found")
	ErrInvalidInput      = errors.New("invalid input data")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrForbidden         = errors.New("action forbidden")
	ErrConflict          = errors.New("entity already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSlotUnavailable   = errors.New("time slot is not available")
	// ErrAccessWindow is returned when a lesson room is joined outside its window.
	ErrAccessWindow    = errors.New("lesson room is not open")
	ErrOptimisticLock  = errors.New("optimistic lock conflict: data was modified by another process")
	ErrLockNotAcquired = errors.New("resource is locked, try again")
	ErrRepository      = errors.New("repository error")
	ErrExternal        = errors.New("external service error")
)
