package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/automation-runner/pkg/automation"
	"github.com/dukex/automation-runner/pkg/eventbus"
	"github.com/dukex/automation-runner/pkg/events"
	"github.com/dukex/automation-runner/pkg/lease"
	"github.com/dukex/automation-runner/pkg/models"
	"github.com/dukex/automation-runner/pkg/otelhelper"
	"github.com/dukex/automation-runner/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunExecutor executes a single run.
type RunExecutor interface {
	Execute(ctx context.Context, run *models.AutomationRun) models.RunStatus
}

// Executor is the only place where a run's outcome is decided. It never returns an error:
// every failure ends up as persisted run state, a RunError row and a log line.
type Executor struct {
	runs          persistence.RunRepository
	results       persistence.ResultRepository
	runErrors     persistence.ErrorRepository
	sessions      persistence.SessionRepository
	resolver      *Resolver
	parser        *automation.PayloadParser
	locker        lease.Locker
	publisher     eventbus.EventPublisher
	tracer        trace.Tracer
	logger        *slog.Logger
	runnerID      string
	maxRetries    int
	actionTimeout time.Duration
	now           func() time.Time
}

// NewExecutor wires an executor. publisher may be nil, in which case no events are published.
func NewExecutor(
	logger *slog.Logger,
	store persistence.Persistence,
	factory automation.Factory,
	locker lease.Locker,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	config Config,
) *Executor {
	logger = logger.With("module", "run_executor", "runner_id", config.RunnerID)

	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Executor{
		runs:          store.RunRepository(),
		results:       store.ResultRepository(),
		runErrors:     store.ErrorRepository(),
		sessions:      store.SessionRepository(),
		resolver:      NewResolver(logger, store.SessionRepository(), factory),
		parser:        automation.NewPayloadParser(validator.New(validator.WithRequiredStructEnabled())),
		locker:        locker,
		publisher:     publisher,
		tracer:        tracer,
		logger:        logger,
		runnerID:      config.RunnerID,
		maxRetries:    config.MaxRetries,
		actionTimeout: config.ActionTimeout,
		now:           time.Now,
	}
}

func leaseKey(browserConfigID int64) string {
	return "browser-config:" + strconv.FormatInt(browserConfigID, 10)
}

// Execute runs one attempt of run and returns the status the run was left in.
func (e *Executor) Execute(ctx context.Context, run *models.AutomationRun) models.RunStatus {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "automation.run.execute",
		attribute.Int64(otelhelper.RunIDKey, run.ID),
		attribute.String(otelhelper.RunTypeKey, string(run.Type)),
		attribute.Int64(otelhelper.BrowserConfigIDKey, run.BrowserConfigID),
		attribute.String(otelhelper.TenantKey, run.Tenant),
	)
	defer span.End()

	logger := e.logger.With("run_id", run.ID, "run_type", run.Type, "browser_config_id", run.BrowserConfigID)

	release, err := e.locker.Acquire(ctx, leaseKey(run.BrowserConfigID))
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			logger.DebugContext(ctx, "Browser session is busy, leaving run for a later poll")
		} else {
			logger.ErrorContext(ctx, "Failed to acquire browser session lease", "error", err)
		}

		return run.Status
	}

	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.WarnContext(ctx, "Failed to release browser session lease", "error", err)
		}
	}()

	current, err := e.runs.RunByID(ctx, run.ID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to reload run", "error", err)

		return run.Status
	}

	if !current.Status.IsEligible() {
		if current.Status.IsTerminal() {
			logger.DebugContext(ctx, "Run already finished, skipping", "status", current.Status)
		} else {
			logger.InfoContext(ctx, "Run is no longer eligible, skipping", "status", current.Status)
		}

		return current.Status
	}

	run = current
	span.SetAttributes(attribute.Int(otelhelper.RetryCountKey, run.RetryCount))

	provider, err := e.resolver.Resolve(ctx, run)
	if err != nil {
		if ctx.Err() != nil {
			logger.WarnContext(ctx, "Run resolution interrupted, leaving run for a later poll", "error", err)

			return run.Status
		}

		e.failResolution(context.WithoutCancel(ctx), logger, span, run, err)

		return run.Status
	}

	previous := run.Status

	err = run.Transition(models.RunStatusRunning, e.now())
	if err != nil {
		logger.ErrorContext(ctx, "Cannot start run", "error", err)

		return previous
	}

	err = e.runs.UpdateRun(ctx, run)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to mark run as running", "error", err)

		return previous
	}

	logger.InfoContext(ctx, "Run started", "retry_count", run.RetryCount)
	e.publish(ctx, logger, run, events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.RunStartedEvent, e.runnerID),
		RunRef:    events.NewRunRef(run),
	})

	result, automationErr, fault := e.dispatch(ctx, provider, run)

	// The outcome is persisted even when the scheduler has cancelled the tick.
	outcomeCtx := context.WithoutCancel(ctx)

	if fault != nil && ctx.Err() != nil {
		e.requeue(outcomeCtx, logger, span, run, previous, fault)

		return run.Status
	}

	e.finish(outcomeCtx, logger, span, run, result, automationErr, fault)

	return run.Status
}

// dispatch parses the payload for the run's type and calls exactly one action. Panics are
// turned into faults.
func (e *Executor) dispatch(ctx context.Context, provider automation.ActionProvider, run *models.AutomationRun) (result any, automationErr *models.AutomationError, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			automationErr = nil
			err = models.NewFatalError(models.ReferencePanic, fmt.Sprintf("action panicked: %v", recovered), nil)
		}
	}()

	payload, err := e.parser.Parse(run.Type, run.Payload)
	if err != nil {
		return nil, nil, err
	}

	if e.actionTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.actionTimeout)
		defer cancel()
	}

	// Parse only yields payloads of known run types.
	switch p := payload.(type) {
	case models.FindConnectionsPayload:
		return provider.ScrapeConnections(ctx, p)
	case models.DownloadConnectionsPayload:
		connections, err := provider.DownloadConnections(ctx, p)

		return connections, nil, err
	case models.FindCompanyPeoplePayload:
		return provider.ScrapeCompanyPeople(ctx, p)
	case models.SendConnectionRequestPayload:
		return provider.SendConnectionRequest(ctx, p)
	case models.SendMessagePayload:
		return provider.SendMessage(ctx, p)
	default:
		return nil, nil, models.NewFatalError(models.ReferenceUnknownRunType, "unknown automation run type: "+string(run.Type), nil)
	}
}

func (e *Executor) finish(
	ctx context.Context,
	logger *slog.Logger,
	span trace.Span,
	run *models.AutomationRun,
	result any,
	automationErr *models.AutomationError,
	fault error,
) {
	now := e.now()

	var record *models.RunError

	switch {
	case fault != nil:
		record = models.ParseFault(run.ID, fault, now)
		e.transition(ctx, logger, run, models.RunStatusFailed, now)

		logger.ErrorContext(ctx, "Run failed", "error", fault, "reference", record.ErrorType)
		otelhelper.SetError(span, fault, attribute.String(otelhelper.ErrorReferenceKey, record.ErrorType))
	case automationErr != nil:
		record = models.FromAutomationError(run.ID, automationErr, now)

		if e.maxRetries > 0 && run.RetryCount >= e.maxRetries {
			e.transition(ctx, logger, run, models.RunStatusFailed, now)
			logger.ErrorContext(ctx, "Automation error after last retry, failing run",
				"error", automationErr, "reference", record.ErrorType, "retry_count", run.RetryCount, "max_retries", e.maxRetries)
		} else {
			e.transition(ctx, logger, run, models.RunStatusRetrying, now)
			logger.ErrorContext(ctx, "Automation error, run will be retried",
				"error", automationErr, "reference", record.ErrorType, "retry_count", run.RetryCount)
		}

		span.SetAttributes(attribute.String(otelhelper.ErrorReferenceKey, record.ErrorType))
	default:
		e.transition(ctx, logger, run, models.RunStatusCompleted, now)
		logger.InfoContext(ctx, "Run completed", "run_duration", run.RunDuration)
	}

	if record != nil {
		e.recordError(ctx, logger, record)
		e.checkSession(ctx, logger, run, record)
	}

	span.SetAttributes(attribute.String(otelhelper.RunStatusKey, string(run.Status)))

	err := e.runs.UpdateRun(ctx, run)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to persist run status", "status", run.Status, "error", err)
	}

	e.recordResult(ctx, logger, run, result)
	e.publishOutcome(ctx, logger, run, record, now)
}

// requeue puts a run whose action was cut short by cancellation back to the status it was
// picked up from. The attempt records no result, no RunError and no retry.
func (e *Executor) requeue(ctx context.Context, logger *slog.Logger, span trace.Span, run *models.AutomationRun, to models.RunStatus, fault error) {
	err := run.Requeue(to, e.now())
	if err != nil {
		logger.ErrorContext(ctx, "Cannot requeue interrupted run", "error", err)

		return
	}

	logger.WarnContext(ctx, "Run interrupted, leaving it for a later poll", "status", run.Status, "error", fault)
	span.SetAttributes(attribute.String(otelhelper.RunStatusKey, string(run.Status)))

	err = e.runs.UpdateRun(ctx, run)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to persist run status", "status", run.Status, "error", err)
	}
}

// failResolution fails a run whose provider could not be built. No result is recorded.
func (e *Executor) failResolution(ctx context.Context, logger *slog.Logger, span trace.Span, run *models.AutomationRun, err error) {
	now := e.now()
	record := models.ParseFault(run.ID, err, now)

	logger.ErrorContext(ctx, "Failed to resolve run", "error", err, "reference", record.ErrorType)
	otelhelper.SetError(span, err, attribute.String(otelhelper.ErrorReferenceKey, record.ErrorType))

	e.transition(ctx, logger, run, models.RunStatusFailed, now)
	e.recordError(ctx, logger, record)
	e.checkSession(ctx, logger, run, record)

	updateErr := e.runs.UpdateRun(ctx, run)
	if updateErr != nil {
		logger.ErrorContext(ctx, "Failed to persist run status", "status", run.Status, "error", updateErr)
	}

	e.publishOutcome(ctx, logger, run, record, now)
}

func (e *Executor) transition(ctx context.Context, logger *slog.Logger, run *models.AutomationRun, to models.RunStatus, now time.Time) {
	err := run.Transition(to, now)
	if err != nil {
		// Only reachable through a programming error; keep the target status anyway so the
		// run does not stay eligible forever.
		logger.ErrorContext(ctx, "Unexpected run transition", "from", run.Status, "to", to, "error", err)
		run.Status = to
		run.UpdatedAt = now
	}
}

func (e *Executor) recordError(ctx context.Context, logger *slog.Logger, record *models.RunError) {
	err := e.runErrors.InsertError(ctx, record)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to record run error", "reference", record.ErrorType, "error", err)
	}
}

// checkSession flips the user's browser session to Invalid when the error says so.
func (e *Executor) checkSession(ctx context.Context, logger *slog.Logger, run *models.AutomationRun, record *models.RunError) {
	if !record.InvalidatesSession() {
		return
	}

	err := e.sessions.UpdateBrowserConfigSessionStatus(ctx, run.UserID, run.Tenant, models.SessionStatusInvalid)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to invalidate browser session", "user_id", run.UserID, "tenant", run.Tenant, "error", err)

		return
	}

	logger.WarnContext(ctx, "Browser session invalidated", "user_id", run.UserID, "tenant", run.Tenant)
	e.publish(ctx, logger, run, events.SessionInvalidated{
		BaseEvent: events.NewBaseEvent(events.SessionInvalidatedEvent, e.runnerID),
		RunID:     run.ID,
		Tenant:    run.Tenant,
		UserID:    run.UserID,
	})
}

func (e *Executor) recordResult(ctx context.Context, logger *slog.Logger, run *models.AutomationRun, result any) {
	data, err := serializeResult(result)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to serialize run result", "error", err)
	}

	err = e.results.InsertResult(ctx, &models.RunResult{
		RunID:      run.ID,
		Type:       run.Type,
		ResultData: data,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to record run result", "error", err)
	}
}

func serializeResult(result any) (string, error) {
	if result == nil {
		return "", nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}

	if string(data) == "null" {
		return "", nil
	}

	return string(data), nil
}

func (e *Executor) publishOutcome(ctx context.Context, logger *slog.Logger, run *models.AutomationRun, record *models.RunError, now time.Time) {
	base := func(eventType events.EventType) events.BaseEvent {
		return events.NewBaseEvent(eventType, e.runnerID)
	}

	switch run.Status {
	case models.RunStatusCompleted:
		var duration time.Duration
		if run.StartedAt != nil {
			duration = now.Sub(*run.StartedAt)
		}

		e.publish(ctx, logger, run, events.RunCompleted{BaseEvent: base(events.RunCompletedEvent), RunRef: events.NewRunRef(run), Duration: duration})
	case models.RunStatusRetrying:
		e.publish(ctx, logger, run, events.RunRetrying{
			BaseEvent: base(events.RunRetryingEvent),
			RunRef:    events.NewRunRef(run),
			Reference: record.ErrorType,
			Error:     record.ErrorMessage,
		})
	case models.RunStatusFailed:
		failed := events.RunFailed{BaseEvent: base(events.RunFailedEvent), RunRef: events.NewRunRef(run)}
		if record != nil {
			failed.Reference = record.ErrorType
			failed.Error = record.ErrorMessage
		}

		e.publish(ctx, logger, run, failed)
	case models.RunStatusScheduled, models.RunStatusRunning, models.RunStatusCancelled, models.RunStatusProcessed:
	}
}

func (e *Executor) publish(ctx context.Context, logger *slog.Logger, run *models.AutomationRun, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, strconv.FormatInt(run.ID, 10), event)
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish run event", "event_type", event.GetType(), "error", err)
	}
}
