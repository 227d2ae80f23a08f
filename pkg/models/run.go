// Package models defines the core domain models for browser automation runs.
package models

import (
	"errors"
	"fmt"
	"time"
)

// RunType identifies which automation action a run performs.
type RunType string

const (
	RunTypeFindConnections       RunType = "FIND_CONNECTIONS"
	RunTypeDownloadConnections   RunType = "DOWNLOAD_CONNECTIONS"
	RunTypeFindCompanyPeople     RunType = "FIND_COMPANY_PEOPLE"
	RunTypeSendConnectionRequest RunType = "SEND_CONNECTION_REQUEST"
	RunTypeSendMessage           RunType = "SEND_MESSAGE"
)

// RunTypes lists every run type the runner can dispatch.
func RunTypes() []RunType {
	return []RunType{
		RunTypeFindConnections,
		RunTypeDownloadConnections,
		RunTypeFindCompanyPeople,
		RunTypeSendConnectionRequest,
		RunTypeSendMessage,
	}
}

// IsKnown reports whether t is one of the dispatchable run types.
func (t RunType) IsKnown() bool {
	for _, known := range RunTypes() {
		if t == known {
			return true
		}
	}

	return false
}

// RunStatus is the lifecycle state of an automation run.
type RunStatus string

const (
	RunStatusScheduled RunStatus = "SCHEDULED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusRetrying  RunStatus = "RETRYING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"

	// Set by downstream consumers, never by the runner.
	RunStatusCancelled RunStatus = "CANCELLED"
	RunStatusProcessed RunStatus = "PROCESSED"
)

// IsTerminal reports whether no further transition is expected for the run record.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusProcessed:
		return true
	case RunStatusScheduled, RunStatusRunning, RunStatusRetrying:
		return false
	}

	return false
}

// IsEligible reports whether a run in this status may be picked up for execution.
func (s RunStatus) IsEligible() bool {
	return s == RunStatusScheduled || s == RunStatusRetrying
}

// TriggeredBy records what created a run.
type TriggeredBy string

const (
	TriggeredByManual    TriggeredBy = "MANUAL"
	TriggeredByScheduler TriggeredBy = "SCHEDULER"
)

// ErrInvalidTransition is returned when a status change violates the run state machine.
var ErrInvalidTransition = errors.New("invalid run status transition")

var allowedTransitions = map[RunStatus][]RunStatus{
	RunStatusScheduled: {RunStatusRunning, RunStatusFailed},
	RunStatusRetrying:  {RunStatusRunning, RunStatusFailed},
	RunStatusRunning:   {RunStatusCompleted, RunStatusRetrying, RunStatusFailed},
}

// AutomationRun is one scheduled unit of browser automation work for a user.
type AutomationRun struct {
	ID              int64       `json:"id"`
	Tenant          string      `json:"tenant"`
	UserID          string      `json:"user_id"`
	BrowserConfigID int64       `json:"browser_config_id"`
	Type            RunType     `json:"type"`
	Payload         string      `json:"payload,omitempty"`
	Status          RunStatus   `json:"status"`
	ScheduledAt     *time.Time  `json:"scheduled_at,omitempty"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	FinishedAt      *time.Time  `json:"finished_at,omitempty"`
	RunDuration     int         `json:"run_duration"`
	RetryCount      int         `json:"retry_count"`
	TriggeredBy     TriggeredBy `json:"triggered_by,omitempty"`
	Priority        int         `json:"priority"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// CanTransition reports whether the run may move to the given status.
func (r *AutomationRun) CanTransition(to RunStatus) bool {
	for _, allowed := range allowedTransitions[r.Status] {
		if allowed == to {
			return true
		}
	}

	return false
}

// Transition moves the run to a new status and maintains the timing columns.
func (r *AutomationRun) Transition(to RunStatus, now time.Time) error {
	if !r.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}

	switch to {
	case RunStatusRunning:
		started := now
		r.StartedAt = &started
		r.FinishedAt = nil
	case RunStatusRetrying:
		r.RetryCount++
		r.finish(now)
	case RunStatusCompleted, RunStatusFailed:
		r.finish(now)
	case RunStatusScheduled, RunStatusCancelled, RunStatusProcessed:
	}

	r.Status = to
	r.UpdatedAt = now

	return nil
}

// Requeue puts a Running run back into the eligible status it was picked up from. The
// attempt is not charged against the retry count.
func (r *AutomationRun) Requeue(to RunStatus, now time.Time) error {
	if r.Status != RunStatusRunning || !to.IsEligible() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}

	r.StartedAt = nil
	r.Status = to
	r.UpdatedAt = now

	return nil
}

func (r *AutomationRun) finish(now time.Time) {
	finished := now
	r.FinishedAt = &finished

	if r.StartedAt != nil {
		r.RunDuration = int(now.Sub(*r.StartedAt).Seconds())
	}
}

// DueAt reports whether the run's scheduled time, if any, has been reached.
func (r *AutomationRun) DueAt(now time.Time) bool {
	return r.ScheduledAt == nil || !r.ScheduledAt.After(now)
}
