// Package apperr carries errors whose HTTP status and code differ from the
// plain fiber.Error mapping.
package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

const (
	CodeConflict = "CONFLICT"
)

// AppError is rendered by the global error handler with its own status and code.
type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

// Conflict reports a uniqueness or dependency clash, answered with 400.
func Conflict(msg string) *AppError {
	return &AppError{Status: fiber.StatusBadRequest, Code: CodeConflict, Message: msg}
}

// As extracts an *AppError from err.
func As(err error) (*AppError, bool) {
	var e *AppError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
