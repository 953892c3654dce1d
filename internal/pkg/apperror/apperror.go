package apperror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrAuthorization     = errors.New("not authorized")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
)

// Error is a user facing error of one of the kinds above.
type Error struct {
	Kind    error
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(field, format string, args ...interface{}) *Error {
	e := newError(ErrValidation, format, args...)
	e.Field = field
	return e
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(ErrNotFound, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newError(ErrAuthorization, format, args...)
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return newError(ErrInvalidTransition, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(ErrConflict, format, args...)
}

// FromValidator turns validator field errors into a ValidationError naming the first failing field.
func FromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return Validation(field, "%s is required", field)
	case "oneof":
		return Validation(field, "%s must be one of: %s", field, fe.Param())
	case "latitude", "longitude":
		return Validation(field, "%s is out of range", field)
	case "max":
		return Validation(field, "%s must be at most %s characters", field, fe.Param())
	case "min":
		return Validation(field, "%s must be at least %s characters", field, fe.Param())
	case "email":
		return Validation(field, "%s must be a valid email address", field)
	default:
		return Validation(field, "%s is invalid", field)
	}
}

// HTTPStatus maps an error to the status code the HTTP layer responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrAuthorization):
		return fiber.StatusForbidden
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// IsUserFacing reports whether err carries a message safe to show to the caller.
func IsUserFacing(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
