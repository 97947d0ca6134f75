package entity

import "errors"

// Error taxonomy surfaced to callers. Wrap with fmt.Errorf("%w: ...") so the
// message stays readable and errors.Is keeps working across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation error")
)
