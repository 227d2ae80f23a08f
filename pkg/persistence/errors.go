// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRunNotFound indicates an automation run was not found by the given identifier.
	ErrRunNotFound = errors.New("automation run not found")

	// ErrBrowserConfigNotFound indicates no browser config exists with the given identifier.
	ErrBrowserConfigNotFound = errors.New("browser config not found")

	// ErrAssignedProxyNotFound indicates the user has no sticky proxy assignment.
	ErrAssignedProxyNotFound = errors.New("assigned proxy not found")

	// ErrProxyPoolEntryNotFound indicates the proxy pool entry is missing or disabled.
	ErrProxyPoolEntryNotFound = errors.New("proxy pool entry not found")
)

// StoreError wraps persistence errors with the operation and record they concern.
type StoreError struct {
	Op     string // Operation being performed (e.g., "RunByID", "UpdateRun")
	Entity string // Kind of record (e.g., "run", "browser_config")
	ID     string // Record identifier if applicable
	Err    error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for store errors.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, entity, id string, err error) *StoreError {
	return &StoreError{
		Op:     op,
		Entity: entity,
		ID:     id,
		Err:    err,
	}
}

// IsRunNotFound checks if an error indicates a run was not found.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

// IsBrowserConfigNotFound checks if an error indicates a browser config was not found.
func IsBrowserConfigNotFound(err error) bool {
	return errors.Is(err, ErrBrowserConfigNotFound)
}

// IsAssignedProxyNotFound checks if an error indicates a proxy assignment was not found.
func IsAssignedProxyNotFound(err error) bool {
	return errors.Is(err, ErrAssignedProxyNotFound)
}

// IsProxyPoolEntryNotFound checks if an error indicates a proxy pool entry was not found.
func IsProxyPoolEntryNotFound(err error) bool {
	return errors.Is(err, ErrProxyPoolEntryNotFound)
}
