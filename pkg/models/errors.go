package models

import (
	"errors"
	"fmt"
	"time"
)

// SessionInvalidReference marks an error that means the user's browser session is no
// longer usable.
const SessionInvalidReference = "S001"

// References carried by fatal faults raised inside the runner.
const (
	ReferenceBrowserConfigNotFound  = "BROWSER_CONFIG_NOT_FOUND"
	ReferenceAssignedProxyNotFound  = "ASSIGNED_PROXY_NOT_FOUND"
	ReferenceProxyPoolEntryNotFound = "PROXY_POOL_ENTRY_NOT_FOUND"
	ReferenceResolutionFailed       = "RESOLUTION_FAILED"
	ReferenceUnknownRunType         = "UNKNOWN_RUN_TYPE"
	ReferenceInvalidPayload         = "INVALID_PAYLOAD"
	ReferencePanic                  = "PANIC"
	ReferenceExecutionError         = "EXECUTION_ERROR"
)

// AutomationError is a recoverable failure reported by an automation action. It travels
// as a value next to the action's result and drives a retry.
type AutomationError struct {
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Reference string `json:"reference,omitempty"`
	Code      string `json:"code,omitempty"`
}

func (e *AutomationError) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("%s: %s", e.Reference, e.Message)
	}

	return e.Message
}

// InvalidatesSession reports whether the error carries the session invalidation reference.
func (e *AutomationError) InvalidatesSession() bool {
	return e != nil && e.Reference == SessionInvalidReference
}

// FatalError is an unrecoverable fault. Runs that hit one are failed, never retried.
type FatalError struct {
	Reference string
	Code      string
	Message   string
	Err       error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatalError creates a fatal fault with the given reference.
func NewFatalError(reference, message string, err error) *FatalError {
	return &FatalError{
		Reference: reference,
		Message:   message,
		Err:       err,
	}
}

// ParseFault turns any error into the RunError row that records it. Structured errors keep
// their reference and code; anything else is recorded as a generic execution error.
func ParseFault(runID int64, err error, now time.Time) *RunError {
	record := &RunError{
		RunID:      runID,
		ErrorType:  ReferenceExecutionError,
		OccurredAt: now,
	}

	var (
		automationErr *AutomationError
		fatal         *FatalError
	)

	switch {
	case errors.As(err, &automationErr):
		return FromAutomationError(runID, automationErr, now)
	case errors.As(err, &fatal):
		record.ErrorType = fatal.Reference
		record.ErrorCode = fatal.Code
		record.ErrorMessage = fatal.Message

		if fatal.Err != nil {
			record.ErrorDetails = fatal.Err.Error()
		}
	default:
		record.ErrorMessage = err.Error()
	}

	if record.ErrorType == "" {
		record.ErrorType = ReferenceExecutionError
	}

	return record
}

// FromAutomationError records a recoverable automation error.
func FromAutomationError(runID int64, err *AutomationError, now time.Time) *RunError {
	errorType := err.Reference
	if errorType == "" {
		errorType = ReferenceExecutionError
	}

	return &RunError{
		RunID:        runID,
		ErrorType:    errorType,
		ErrorCode:    err.Code,
		ErrorMessage: err.Message,
		ErrorDetails: err.Details,
		OccurredAt:   now,
	}
}
