// Package events defines the notifications published while automation runs move through
// their lifecycle.
package events

import (
	"time"

	"github.com/dukex/automation-runner/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every run lifecycle event.
const Topic = "automation.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent         EventType = "automation.run.started"
	RunCompletedEvent       EventType = "automation.run.completed"
	RunRetryingEvent        EventType = "automation.run.retrying"
	RunFailedEvent          EventType = "automation.run.failed"
	SessionInvalidatedEvent EventType = "automation.session.invalidated"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunnerID  string    `json:"runner_id,omitempty"`
}

func NewBaseEvent(eventType EventType, runnerID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunnerID:  runnerID,
	}
}

// RunRef identifies the run an event is about.
type RunRef struct {
	RunID           int64          `json:"run_id"`
	Tenant          string         `json:"tenant"`
	UserID          string         `json:"user_id"`
	BrowserConfigID int64          `json:"browser_config_id"`
	RunType         models.RunType `json:"run_type"`
	RetryCount      int            `json:"retry_count"`
}

func NewRunRef(run *models.AutomationRun) RunRef {
	return RunRef{
		RunID:           run.ID,
		Tenant:          run.Tenant,
		UserID:          run.UserID,
		BrowserConfigID: run.BrowserConfigID,
		RunType:         run.Type,
		RetryCount:      run.RetryCount,
	}
}

type RunStarted struct {
	BaseEvent
	RunRef
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunCompleted struct {
	BaseEvent
	RunRef

	Duration time.Duration `json:"duration"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

// RunRetrying is published when an action reported a recoverable error.
type RunRetrying struct {
	BaseEvent
	RunRef

	Reference string `json:"reference,omitempty"`
	Error     string `json:"error"`
}

func (e RunRetrying) GetType() EventType {
	return RunRetryingEvent
}

type RunFailed struct {
	BaseEvent
	RunRef

	Reference string `json:"reference,omitempty"`
	Error     string `json:"error"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

// SessionInvalidated is published when a run's error marked the user's session invalid.
type SessionInvalidated struct {
	BaseEvent

	RunID  int64  `json:"run_id"`
	Tenant string `json:"tenant"`
	UserID string `json:"user_id"`
}

func (e SessionInvalidated) GetType() EventType {
	return SessionInvalidatedEvent
}
