// Package common holds the error taxonomy shared by services and the web layer.
package common

import "errors"

var (
	// ErrValidation marks missing or empty required input (400)
	ErrValidation = errors.New("validation error")

	// ErrInvalidCredentials is the single answer to a failed login (401)
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrConflict marks a duplicate username (409)
	ErrConflict = errors.New("already exists")

	// ErrNotFound marks an unknown or foreign chat id (404)
	ErrNotFound = errors.New("not found")

	// ErrUpstream wraps any failure of the generation service (500)
	ErrUpstream = errors.New("generation service error")

	ErrInvalidToken = errors.New("invalid token")
)

// UpstreamError carries a generation failure. Its message is the raw
// upstream error so callers can surface it unchanged.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
