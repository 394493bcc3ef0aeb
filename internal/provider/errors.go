package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below.
var (
	ErrInitialize    = errors.New("provider not initialized")
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("duplicate instance name")
	ErrInvalidFilter = errors.New("invalid filter")
)

// InitializeError reports required configuration that is missing for a
// provider concern. It is returned on first use, never retried.
type InitializeError struct {
	Provider string
	Missing  []string
}

func (e *InitializeError) Error() string {
	return fmt.Sprintf("%s provider is missing required config: %s", e.Provider, strings.Join(e.Missing, ", "))
}

// Is reports whether target is ErrInitialize.
func (e *InitializeError) Is(target error) bool { return target == ErrInitialize }

// NotFoundError reports a referenced resource that does not exist.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DuplicateInstanceName reports a name collision at provisioning time.
type DuplicateInstanceName struct {
	Name string
}

func (e *DuplicateInstanceName) Error() string {
	return fmt.Sprintf("instance name %q is already in use", e.Name)
}

// Is reports whether target is ErrDuplicateName.
func (e *DuplicateInstanceName) Is(target error) bool { return target == ErrDuplicateName }

// InvalidFilter reports a malformed instance filter.
type InvalidFilter struct {
	Reason string
}

func (e *InvalidFilter) Error() string {
	return "invalid filter: " + e.Reason
}

// Is reports whether target is ErrInvalidFilter.
func (e *InvalidFilter) Is(target error) bool { return target == ErrInvalidFilter }

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// CleanupError collects failures of best-effort resource removal.
type CleanupError struct {
	Errors []error
}

func (e *CleanupError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("cleanup failed with %d error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap returns the collected errors.
func (e *CleanupError) Unwrap() []error { return e.Errors }

// Add records err if it is not nil.
func (e *CleanupError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors reports whether any error was recorded.
func (e *CleanupError) HasErrors() bool { return len(e.Errors) > 0 }
