// Package apperror defines the closed set of failures surfaced to users.
package apperror

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Category is a machine-readable error class.
type Category string

const (
	CategoryAuthentication       Category = "AUTHENTICATION_ERROR"
	CategoryPermission           Category = "PERMISSION_ERROR"
	CategoryNotFound             Category = "NOT_FOUND"
	CategoryRateLimit            Category = "RATE_LIMIT"
	CategoryServiceUnavailable   Category = "SERVICE_UNAVAILABLE"
	CategoryNetwork              Category = "NETWORK_ERROR"
	CategoryUnresolvableIdentity Category = "UNRESOLVABLE_IDENTITY"
	CategoryValidation           Category = "VALIDATION_ERROR"
	CategoryAPI                  Category = "API_ERROR"
)

// Error is an application error with a category.
type Error struct {
	Category   Category
	Message    string
	StatusCode int
	// RetryAfter is set for rate limit errors when the server sent a hint.
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return errors.Cause(e.cause)
}

// Stack returns the stack captured when the error was created.
func (e *Error) Stack() string {
	return fmt.Sprintf("%+v", e.cause)
}

func newError(category Category, status int, message string, cause error) *Error {
	if cause == nil {
		cause = errors.New(message)
	} else {
		cause = errors.WithStack(cause)
	}
	return &Error{Category: category, StatusCode: status, Message: message, cause: cause}
}

func NewAuthentication(message string) *Error {
	return newError(CategoryAuthentication, http.StatusUnauthorized, message, nil)
}

func NewPermission(message string) *Error {
	return newError(CategoryPermission, http.StatusForbidden, message, nil)
}

func NewNotFound(message string) *Error {
	return newError(CategoryNotFound, http.StatusNotFound, message, nil)
}

// NewRateLimit creates a rate limit error carrying the server's retry hint.
func NewRateLimit(message string, retryAfter time.Duration) *Error {
	e := newError(CategoryRateLimit, http.StatusTooManyRequests, message, nil)
	e.RetryAfter = retryAfter
	return e
}

func NewServiceUnavailable(status int, message string) *Error {
	return newError(CategoryServiceUnavailable, status, message, nil)
}

// NewNetwork wraps a transport failure where no response was received.
func NewNetwork(cause error) *Error {
	return newError(CategoryNetwork, 0, fmt.Sprintf("no response received: %v", cause), cause)
}

// NewUnresolvableIdentity reports that no platform identity matches email.
func NewUnresolvableIdentity(email string) *Error {
	if email == "" {
		return newError(CategoryUnresolvableIdentity, 0, "no user email given to resolve an identity from", nil)
	}
	return newError(CategoryUnresolvableIdentity, 0, fmt.Sprintf("could not resolve identity for %q", email), nil)
}

// NewValidation reports missing or malformed request parameters.
func NewValidation(message string) *Error {
	return newError(CategoryValidation, 0, message, nil)
}

func NewAPI(status int, message string) *Error {
	return newError(CategoryAPI, status, message, nil)
}

// FromStatus maps a raw HTTP status code into the closed error set.
func FromStatus(status int, message, retryAfter string) *Error {
	message = strings.TrimSpace(message)
	switch {
	case status == http.StatusUnauthorized:
		return NewAuthentication(orDefault(message, "authentication failed, check the access token"))
	case status == http.StatusForbidden:
		return NewPermission(orDefault(message, "access denied"))
	case status == http.StatusNotFound:
		return NewNotFound(orDefault(message, "resource not found"))
	case status == http.StatusTooManyRequests:
		return NewRateLimit(orDefault(message, "rate limit exceeded"), ParseRetryAfter(retryAfter))
	case status >= 500:
		return NewServiceUnavailable(status, orDefault(message, "service unavailable"))
	default:
		return NewAPI(status, orDefault(message, http.StatusText(status)))
	}
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// CategoryOf returns the category of err, or CategoryAPI for foreign errors.
func CategoryOf(err error) Category {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Category
	}
	return CategoryAPI
}

// Is reports whether err carries the given category.
func Is(err error, category Category) bool {
	var appErr *Error
	return stderrors.As(err, &appErr) && appErr.Category == category
}

// HTTPStatus is the status the HTTP surface answers with for a category.
func HTTPStatus(category Category) int {
	switch category {
	case CategoryAuthentication:
		return http.StatusUnauthorized
	case CategoryPermission:
		return http.StatusForbidden
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryRateLimit:
		return http.StatusTooManyRequests
	case CategoryServiceUnavailable:
		return http.StatusServiceUnavailable
	case CategoryNetwork:
		return http.StatusBadGateway
	case CategoryValidation, CategoryUnresolvableIdentity:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
