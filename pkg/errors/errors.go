// Package errors provides custom error types for the notesync system.
// These errors enable programmatic error checking at the remote capability
// boundary and keep the sync engine independent of the Notion client's
// HTTP-level representation.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// As is an alias for the standard library errors.As.
var As = errors.As

// Common sentinel errors for the notesync system
var (
	// ErrNotFound indicates that a remote page no longer resolves.
	// A recorded identifier hitting this is treated as "never synced".
	ErrNotFound = errors.New("not found")

	// ErrDiffUnavailable indicates that a git comparison could not be
	// computed (missing refs, shallow history). Callers fall back to a
	// full sync rather than failing.
	ErrDiffUnavailable = errors.New("diff unavailable")

	// ErrTokenRequired indicates that a Notion token is required but not provided
	ErrTokenRequired = errors.New("notion token required")

	// ErrParentRequired indicates that no root parent page id was configured
	ErrParentRequired = errors.New("parent page id required")

	// ErrRateLimited indicates that the API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrRemoteUnavailable indicates that the remote store is temporarily unavailable
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")
)

// APIError represents an error returned by the Notion API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("notion API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support. Not-found responses (HTTP 404 or the
// object_not_found error code) match ErrNotFound so the engine can treat
// stale identifiers as "never synced" without inspecting status codes.
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 404 || e.Code == "object_not_found" {
		return target == ErrNotFound
	}
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrRemoteUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// SyncError represents a failure while reconciling a single document.
type SyncError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed for %s: %v", e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a new SyncError
func NewSyncError(path string, err error) *SyncError {
	return &SyncError{Path: path, Err: err}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error in %s: %s: %v", e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("config error in %s: %s", e.Component, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IOError represents a file system operation error
type IOError struct {
	Operation string
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing failure
type ParseError struct {
	Format  string
	Subject string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %s: %v", e.Format, e.Subject, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// WrapIO wraps a file system error with operation context
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapParse wraps a parsing error with format context
func WrapParse(format, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, Subject: subject, Err: err}
}

// WrapSync wraps an error with the document path it occurred on
func WrapSync(path string, err error) error {
	if err == nil {
		return nil
	}
	return &SyncError{Path: path, Err: err}
}
