package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrCapacity          = errors.New("not enough available seats")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")
	ErrDuplicate         = errors.New("already exists")
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInUse             = errors.New("resource is still referenced")
)
