package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/automation-runner/pkg/models"
	"github.com/dukex/automation-runner/pkg/persistence"
	"github.com/dukex/automation-runner/pkg/scheduler"
)

// JobScheduler registers named jobs.
type JobScheduler interface {
	Schedule(name string, job scheduler.Job) error
}

// Poller periodically looks for eligible runs and hands each to the scheduler as a
// one-shot job. It never executes runs itself.
type Poller struct {
	scheduler JobScheduler
	runs      persistence.RunRepository
	executor  RunExecutor
	config    Config
	logger    *slog.Logger
}

func NewPoller(logger *slog.Logger, jobs JobScheduler, runs persistence.RunRepository, executor RunExecutor, config Config) *Poller {
	return &Poller{
		scheduler: jobs,
		runs:      runs,
		executor:  executor,
		config:    config,
		logger:    logger.With("module", "run_poller", "runner_id", config.RunnerID),
	}
}

// Start registers the two recurring poll jobs.
func (p *Poller) Start() error {
	err := p.scheduler.Schedule(ScheduledPollJob, scheduler.Job{
		CronTime: p.config.ScheduledPoll,
		OnTick: func(ctx context.Context) {
			p.Poll(ctx, models.RunStatusScheduled)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", ScheduledPollJob, err)
	}

	err = p.scheduler.Schedule(RetryingPollJob, scheduler.Job{
		CronTime: p.config.RetryingPoll,
		OnTick: func(ctx context.Context) {
			p.Poll(ctx, models.RunStatusRetrying)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", RetryingPollJob, err)
	}

	p.logger.Info("Run polling started", "scheduled_poll", p.config.ScheduledPoll, "retrying_poll", p.config.RetryingPoll)

	return nil
}

// Poll schedules one execution per run currently in status and returns how many were
// scheduled. Store failures are logged and end the tick.
func (p *Poller) Poll(ctx context.Context, status models.RunStatus) int {
	runs, err := p.runs.RunsByStatus(ctx, status)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to query runs", "status", status, "error", err)

		return 0
	}

	if len(runs) == 0 {
		return 0
	}

	p.logger.DebugContext(ctx, "Found eligible runs", "status", status, "count", len(runs))

	scheduled := 0

	for _, run := range runs {
		name := JobName(run.ID)

		err := p.scheduler.Schedule(name, scheduler.Job{
			RunOnce: true,
			OnTick: func(ctx context.Context) {
				p.executor.Execute(ctx, run)
			},
		})

		switch {
		case err == nil:
			scheduled++
		case errors.Is(err, scheduler.ErrJobInFlight):
			p.logger.DebugContext(ctx, "Run is already executing", "run_id", run.ID, "job", name)
		default:
			p.logger.ErrorContext(ctx, "Failed to schedule run", "run_id", run.ID, "job", name, "error", err)
		}
	}

	return scheduled
}
