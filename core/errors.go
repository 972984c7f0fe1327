package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Account errors
var (
	ErrEmailTaken         = errors.New("email is already registered") // 409 Conflict
	ErrAccountNotFound    = errors.New("account not found")           // 404 Not Found
	ErrInvalidCredentials = errors.New("invalid email or password")   // 401 Unauthorized
	ErrInvalidCode        = errors.New("invalid or expired code")     // 400 Bad Request
)

// Token errors
var (
	ErrMissingAuthHeader = errors.New("missing authorization header") // 401
	ErrInvalidToken      = errors.New("invalid token")                // 401
	ErrTokenExpired      = errors.New("token expired")                // 401
)

// Catalog errors
var (
	ErrMovieNotFound = errors.New("movie not found")                // 404
	ErrActorNotFound = errors.New("actor not found")                // 404
	ErrActorInUse    = errors.New("actor is referenced by a movie") // 409
)

// Validation errors (client input)
var (
	ErrValidation  = errors.New("invalid fields")       // 400
	ErrInvalidBody = errors.New("invalid request body") // 400
)

// Persistence errors
var (
	ErrInternal    = errors.New("internal error")                  // 500
	ErrUnavailable = errors.New("storage temporarily unavailable") // 503
)

// Config errors (server-side configuration)
var (
	ErrStorageRequired     = errors.New("storage adapter is required") // 500
	ErrHTTPAdapterRequired = errors.New("HTTP adapter is required")    // 500
	ErrSecretRequired      = errors.New("secret is required")          // 500
	ErrSecretTooShort      = errors.New("secret too short")            // 500
)

// ValidationError reports per-field failures. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
