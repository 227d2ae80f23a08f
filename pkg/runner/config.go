// Package runner decides the lifecycle of automation runs: it polls for eligible runs,
// schedules each as a one-shot job and executes it against the user's session.
package runner

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultScheduledPoll = "@every 20s"
	DefaultRetryingPoll  = "@every 10s"
	DefaultMaxRetries    = 5
	DefaultActionTimeout = 10 * time.Minute

	ScheduledPollJob = "find-scheduled-runs"
	RetryingPollJob  = "find-retrying-runs"
)

// Config tunes polling and execution.
type Config struct {
	RunnerID      string        `validate:"required"`
	ScheduledPoll string        `validate:"required"`
	RetryingPoll  string        `validate:"required"`
	MaxRetries    int           `validate:"gte=0"`
	ActionTimeout time.Duration `validate:"gte=0"`
}

// DefaultConfig returns the production defaults for the given runner id.
func DefaultConfig(runnerID string) Config {
	return Config{
		RunnerID:      runnerID,
		ScheduledPoll: DefaultScheduledPoll,
		RetryingPoll:  DefaultRetryingPoll,
		MaxRetries:    DefaultMaxRetries,
		ActionTimeout: DefaultActionTimeout,
	}
}

// Validate checks the configuration with the given validator.
func (c Config) Validate(v *validator.Validate) error {
	err := v.Struct(c)
	if err != nil {
		return fmt.Errorf("invalid runner config: %w", err)
	}

	return nil
}

// JobName is the scheduler job name of a run's one-shot execution.
func JobName(runID int64) string {
	return fmt.Sprintf("automation-run-%d", runID)
}
