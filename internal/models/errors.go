package models

import "errors"

var (
	ErrNotFound        = errors.New("task not found")
	ErrMissingFields   = errors.New("title and description are required")
	ErrNothingToUpdate = errors.New("at least one field (title or description) is required")
)

// IsValidation reports whether err was caused by missing input fields.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingFields) || errors.Is(err, ErrNothingToUpdate)
}
