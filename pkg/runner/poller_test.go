package runner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukex/automation-runner/pkg/mocks"
	"github.com/dukex/automation-runner/pkg/models"
	"github.com/dukex/automation-runner/pkg/runner"
	"github.com/dukex/automation-runner/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingScheduler struct {
	mu   sync.Mutex
	jobs map[string]scheduler.Job
	errs map[string]error
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{jobs: make(map[string]scheduler.Job), errs: make(map[string]error)}
}

func (s *recordingScheduler) Schedule(name string, job scheduler.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.errs[name]; err != nil {
		return err
	}

	s.jobs[name] = job

	return nil
}

type recordingExecutor struct {
	mu   sync.Mutex
	runs []int64
}

func (e *recordingExecutor) Execute(_ context.Context, run *models.AutomationRun) models.RunStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.runs = append(e.runs, run.ID)

	return models.RunStatusCompleted
}

func TestPoller_StartRegistersPollJobs(t *testing.T) {
	t.Parallel()

	jobs := newRecordingScheduler()
	config := runner.DefaultConfig("runner-test")
	poller := runner.NewPoller(discardLogger(), jobs, &mocks.MockRunRepository{}, &recordingExecutor{}, config)

	require.NoError(t, poller.Start())

	require.Len(t, jobs.jobs, 2)
	assert.Equal(t, runner.DefaultScheduledPoll, jobs.jobs[runner.ScheduledPollJob].CronTime)
	assert.Equal(t, runner.DefaultRetryingPoll, jobs.jobs[runner.RetryingPollJob].CronTime)
	assert.False(t, jobs.jobs[runner.ScheduledPollJob].RunOnce)
}

func TestPoller_StartFailsOnInvalidCronTime(t *testing.T) {
	t.Parallel()

	config := runner.DefaultConfig("runner-test")
	config.RetryingPoll = "every so often"

	s := scheduler.New(discardLogger())
	poller := runner.NewPoller(discardLogger(), s, &mocks.MockRunRepository{}, &recordingExecutor{}, config)

	err := poller.Start()
	require.ErrorIs(t, err, scheduler.ErrInvalidCronTime)
}

func TestPoller_SchedulesOneJobPerRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runs := &mocks.MockRunRepository{}
	runs.On("RunsByStatus", mock.Anything, models.RunStatusRetrying).Return([]*models.AutomationRun{
		{ID: 7, Status: models.RunStatusRetrying},
		{ID: 8, Status: models.RunStatusRetrying},
		{ID: 9, Status: models.RunStatusRetrying},
	}, nil)

	jobs := newRecordingScheduler()
	jobs.errs[runner.JobName(8)] = scheduler.ErrJobInFlight
	executor := &recordingExecutor{}

	poller := runner.NewPoller(discardLogger(), jobs, runs, executor, runner.DefaultConfig("runner-test"))

	assert.Equal(t, 2, poller.Poll(ctx, models.RunStatusRetrying))
	require.Len(t, jobs.jobs, 2)

	for _, id := range []int64{7, 9} {
		job, ok := jobs.jobs[runner.JobName(id)]
		require.True(t, ok)
		assert.True(t, job.RunOnce)
		assert.Empty(t, job.CronTime)

		job.OnTick(ctx)
	}

	assert.Equal(t, []int64{7, 9}, executor.runs)
}

func TestPoller_StoreErrorEndsTick(t *testing.T) {
	t.Parallel()

	runs := &mocks.MockRunRepository{}
	runs.On("RunsByStatus", mock.Anything, models.RunStatusScheduled).Return(nil, errors.New("connection refused"))

	jobs := newRecordingScheduler()
	poller := runner.NewPoller(discardLogger(), jobs, runs, &recordingExecutor{}, runner.DefaultConfig("runner-test"))

	assert.Zero(t, poller.Poll(context.Background(), models.RunStatusScheduled))
	assert.Empty(t, jobs.jobs)
}

func TestPoller_ExecutesScheduledRunEndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	run := f.createRun(t, models.RunTypeDownloadConnections, "")
	f.provider.On("DownloadConnections", mock.Anything, mock.Anything).
		Return([]models.LinkedInConnection{{ProfileURL: "https://www.linkedin.com/in/jane"}}, nil)

	s := scheduler.New(discardLogger())
	s.Start()

	t.Cleanup(func() {
		_ = s.StopJobs(context.Background())
	})

	poller := runner.NewPoller(discardLogger(), s, f.store, f.executor(nil), f.runner)
	assert.Equal(t, 1, poller.Poll(context.Background(), models.RunStatusScheduled))

	assert.Eventually(t, func() bool {
		stored, err := f.store.RunByID(context.Background(), run.ID)

		return err == nil && stored.Status == models.RunStatusCompleted
	}, 3*time.Second, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, ok := s.Job(runner.JobName(run.ID))

		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	assert.Zero(t, poller.Poll(context.Background(), models.RunStatusScheduled), "completed runs are not picked up again")
}
