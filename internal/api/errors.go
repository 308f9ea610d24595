package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Error is the JSON error body returned by the API.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

// Error implements the error interface.
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{Code: code, Message: msg}
}

func ErrInvalidJSON() Error {
	return NewError(fiber.StatusBadRequest, "Invalid JSON format in request body")
}

func ErrEmptyQuestion() Error {
	return NewError(fiber.StatusBadRequest, "Question must not be empty")
}

func ErrUnexpected() Error {
	return NewError(fiber.StatusInternalServerError, "An unexpected error occurred")
}

// ErrorHandler maps handler errors to JSON responses. Unknown errors are
// logged and hidden behind a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Code).JSON(apiErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
		return c.Status(fiberErr.Code).JSON(NewError(fiberErr.Code, fiberErr.Message))
	}

	slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	unexpected := ErrUnexpected()
	return c.Status(unexpected.Code).JSON(unexpected)
}
