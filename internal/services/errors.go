package services

import "errors"

// Sentinel errors shared by the service layer. Handlers map these onto HTTP
// status codes; anything else surfaces as a 500.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("already exists")
	ErrValidation        = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
)
