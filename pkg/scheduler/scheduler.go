// Package scheduler runs named recurring and one-shot jobs on top of robfig/cron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	ErrNilTick         = errors.New("job has no tick function")
	ErrInvalidCronTime = errors.New("invalid cron time")
	ErrStopped         = errors.New("scheduler is stopped")
	// ErrJobInFlight is returned when a job is re-scheduled while its tick is executing.
	ErrJobInFlight = errors.New("job is executing")
)

// Job describes what to run and when. A recurring job requires CronTime. A one-shot job
// fires once at the next CronTime occurrence, or immediately when CronTime is empty, and
// is unregistered after OnTick returns.
type Job struct {
	CronTime string
	RunOnce  bool
	// OnTick returning signals the tick is complete. The context is cancelled when the
	// scheduler gives up waiting for running ticks during StopJobs.
	OnTick func(ctx context.Context)
}

// JobInfo is a point-in-time view of a registered job.
type JobInfo struct {
	Name     string    `json:"name"`
	CronTime string    `json:"cron_time,omitempty"`
	RunOnce  bool      `json:"run_once"`
	Running  bool      `json:"running"`
	Next     time.Time `json:"next,omitzero"`
}

type entry struct {
	id      cron.EntryID
	job     Job
	running bool
}

// Scheduler keeps at most one armed job per name.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	parser  cron.Parser
	logger  *slog.Logger
	jobs    map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// New creates a stopped scheduler. Jobs may be scheduled before Start.
func New(logger *slog.Logger) *Scheduler {
	logger = logger.With("module", "scheduler")
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cronLogger := NewCronLogger(logger)
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		parser: parser,
		logger: logger,
		jobs:   make(map[string]*entry),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins firing armed jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Schedule registers job under name and arms it. An armed job with the same name is
// replaced. If that job's tick is currently executing, ErrJobInFlight is returned and the
// registry is left untouched.
func (s *Scheduler) Schedule(name string, job Job) error {
	if job.OnTick == nil {
		return ErrNilTick
	}

	schedule, err := s.buildSchedule(job)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}

	if existing, ok := s.jobs[name]; ok {
		if existing.running {
			return fmt.Errorf("%w: %s", ErrJobInFlight, name)
		}

		s.cron.Remove(existing.id)
		s.logger.Debug("Replacing armed job", "job", name)
	}

	e := &entry{job: job}

	var run cron.Job = s.wrap(name, e)
	if !job.RunOnce {
		run = cron.NewChain(cron.SkipIfStillRunning(NewCronLogger(s.logger))).Then(run)
	}

	e.id = s.cron.Schedule(schedule, run)
	s.jobs[name] = e

	return nil
}

func (s *Scheduler) buildSchedule(job Job) (cron.Schedule, error) {
	cronTime := strings.TrimSpace(job.CronTime)

	if cronTime == "" {
		if !job.RunOnce {
			return nil, fmt.Errorf("%w: recurring job requires a cron time", ErrInvalidCronTime)
		}

		return &onceSchedule{}, nil
	}

	schedule, err := s.parser.Parse(cronTime)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidCronTime, cronTime, err)
	}

	if job.RunOnce {
		return &onceSchedule{inner: schedule}, nil
	}

	return schedule, nil
}

func (s *Scheduler) wrap(name string, e *entry) cron.FuncJob {
	return func() {
		s.mu.Lock()
		// A replaced entry can still be started by cron if it was already due.
		if s.jobs[name] != e {
			s.mu.Unlock()

			return
		}

		e.running = true
		ctx := s.ctx
		s.mu.Unlock()

		defer s.finish(name, e)

		e.job.OnTick(ctx)
	}
}

func (s *Scheduler) finish(name string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.running = false

	if !e.job.RunOnce {
		return
	}

	s.cron.Remove(e.id)

	if s.jobs[name] == e {
		delete(s.jobs, name)
	}
}

// StopJobs disarms every job and waits for running ticks until ctx is done. The context
// handed to ticks is cancelled before returning.
func (s *Scheduler) StopJobs(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()

		return nil
	}

	s.stopped = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Stopping scheduler")

	drained := s.cron.Stop()
	defer s.cancel()

	select {
	case <-drained.Done():
		s.logger.InfoContext(ctx, "Scheduler stopped")

		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler stopped before running jobs completed", "running", s.runningCount())

		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

func (s *Scheduler) runningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0

	for _, e := range s.jobs {
		if e.running {
			count++
		}
	}

	return count
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobInfo, 0, len(s.jobs))

	for name, e := range s.jobs {
		info := JobInfo{
			Name:     name,
			CronTime: e.job.CronTime,
			RunOnce:  e.job.RunOnce,
			Running:  e.running,
		}

		if !e.running {
			info.Next = s.cron.Entry(e.id).Next
		}

		jobs = append(jobs, info)
	}

	slices.SortFunc(jobs, func(a, b JobInfo) int {
		return strings.Compare(a.Name, b.Name)
	})

	return jobs
}

// Job returns the registered job with the given name.
func (s *Scheduler) Job(name string) (JobInfo, bool) {
	for _, info := range s.Jobs() {
		if info.Name == name {
			return info, true
		}
	}

	return JobInfo{}, false
}

// onceSchedule yields a single activation time and then the zero time, which cron treats
// as never.
type onceSchedule struct {
	mu    sync.Mutex
	inner cron.Schedule
	armed bool
}

func (o *onceSchedule) Next(t time.Time) time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.armed {
		return time.Time{}
	}

	o.armed = true

	if o.inner == nil {
		return t
	}

	return o.inner.Next(t)
}
