// Package memory provides an in-process persistence implementation for development and tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/dukex/automation-runner/pkg/models"
	"github.com/dukex/automation-runner/pkg/persistence"
)

// Persistence keeps every record in memory. Records are copied on the way in and out so
// callers never share state with the store.
type Persistence struct {
	mu             sync.RWMutex
	now            func() time.Time
	nextID         int64
	runs           map[int64]models.AutomationRun
	results        []models.RunResult
	errors         []models.RunError
	browserConfigs map[int64]models.BrowserConfig
	assignedProxy  map[string]models.AssignedProxy
	proxyPool      map[int64]models.ProxyPoolEntry
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		now:            time.Now,
		runs:           make(map[int64]models.AutomationRun),
		browserConfigs: make(map[int64]models.BrowserConfig),
		assignedProxy:  make(map[string]models.AssignedProxy),
		proxyPool:      make(map[int64]models.ProxyPoolEntry),
	}
}

func (p *Persistence) RunRepository() persistence.RunRepository         { return p }
func (p *Persistence) ResultRepository() persistence.ResultRepository   { return p }
func (p *Persistence) ErrorRepository() persistence.ErrorRepository     { return p }
func (p *Persistence) SessionRepository() persistence.SessionRepository { return p }

// HealthCheck always succeeds for the in-memory store.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

// Close performs any necessary cleanup. For in-memory persistence, there is nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) id() int64 {
	p.nextID++

	return p.nextID
}

// CreateRun stores a new run, assigning an id and timestamps when missing.
func (p *Persistence) CreateRun(_ context.Context, run *models.AutomationRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if run.ID == 0 {
		run.ID = p.id()
	}

	if run.Status == "" {
		run.Status = models.RunStatusScheduled
	}

	now := p.now()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}

	run.UpdatedAt = now
	p.runs[run.ID] = *run

	return nil
}

func (p *Persistence) RunByID(_ context.Context, id int64) (*models.AutomationRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	run, ok := p.runs[id]
	if !ok {
		return nil, persistence.NewStoreError("RunByID", "run", strconv.FormatInt(id, 10), persistence.ErrRunNotFound)
	}

	return &run, nil
}

func (p *Persistence) RunsByStatus(_ context.Context, status models.RunStatus) ([]*models.AutomationRun, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	now := p.now()
	runs := make([]*models.AutomationRun, 0)

	for _, run := range p.runs {
		if run.Status != status {
			continue
		}

		if status == models.RunStatusScheduled && !run.DueAt(now) {
			continue
		}

		runs = append(runs, &run)
	}

	slices.SortFunc(runs, func(a, b *models.AutomationRun) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}

		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return runs, nil
}

func (p *Persistence) UpdateRun(_ context.Context, run *models.AutomationRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.runs[run.ID]; !ok {
		return persistence.NewStoreError("UpdateRun", "run", strconv.FormatInt(run.ID, 10), persistence.ErrRunNotFound)
	}

	run.UpdatedAt = p.now()
	p.runs[run.ID] = *run

	return nil
}

func (p *Persistence) InsertResult(_ context.Context, result *models.RunResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	result.ID = p.id()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = p.now()
	}

	p.results = append(p.results, *result)

	return nil
}

func (p *Persistence) ResultsByRunID(_ context.Context, runID int64) ([]*models.RunResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	results := make([]*models.RunResult, 0)

	for _, result := range p.results {
		if result.RunID == runID {
			results = append(results, &result)
		}
	}

	return results, nil
}

func (p *Persistence) InsertError(_ context.Context, runError *models.RunError) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	runError.ID = p.id()
	if runError.OccurredAt.IsZero() {
		runError.OccurredAt = p.now()
	}

	p.errors = append(p.errors, *runError)

	return nil
}

func (p *Persistence) ErrorsByRunID(_ context.Context, runID int64) ([]*models.RunError, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	runErrors := make([]*models.RunError, 0)

	for _, runError := range p.errors {
		if runError.RunID == runID {
			runErrors = append(runErrors, &runError)
		}
	}

	return runErrors, nil
}

// SaveBrowserConfig stores or replaces a browser config.
func (p *Persistence) SaveBrowserConfig(_ context.Context, config *models.BrowserConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if config.ID == 0 {
		config.ID = p.id()
	}

	if config.SessionStatus == "" {
		config.SessionStatus = models.SessionStatusValid
	}

	config.UpdatedAt = p.now()
	p.browserConfigs[config.ID] = *config

	return nil
}

// SaveProxyPoolEntry stores or replaces a proxy pool entry.
func (p *Persistence) SaveProxyPoolEntry(_ context.Context, entry *models.ProxyPoolEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry.ID == 0 {
		entry.ID = p.id()
	}

	entry.UpdatedAt = p.now()
	p.proxyPool[entry.ID] = *entry

	return nil
}

// AssignProxy binds a user to a proxy pool entry, replacing any previous assignment.
func (p *Persistence) AssignProxy(_ context.Context, assignment *models.AssignedProxy) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if assignment.ID == 0 {
		assignment.ID = p.id()
	}

	assignment.UpdatedAt = p.now()
	p.assignedProxy[assignment.UserID] = *assignment

	return nil
}

func (p *Persistence) BrowserConfigByID(_ context.Context, id int64) (*models.BrowserConfig, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	config, ok := p.browserConfigs[id]
	if !ok {
		return nil, persistence.NewStoreError("BrowserConfigByID", "browser_config", strconv.FormatInt(id, 10), persistence.ErrBrowserConfigNotFound)
	}

	return &config, nil
}

func (p *Persistence) AssignedProxyByUserID(_ context.Context, userID string) (*models.AssignedProxy, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	assignment, ok := p.assignedProxy[userID]
	if !ok {
		return nil, persistence.NewStoreError("AssignedProxyByUserID", "assigned_proxy", userID, persistence.ErrAssignedProxyNotFound)
	}

	return &assignment, nil
}

func (p *Persistence) ProxyPoolEntryByID(_ context.Context, id int64) (*models.ProxyPoolEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.proxyPool[id]
	if !ok || !entry.Enabled {
		return nil, persistence.NewStoreError("ProxyPoolEntryByID", "proxy_pool", strconv.FormatInt(id, 10), persistence.ErrProxyPoolEntryNotFound)
	}

	return &entry, nil
}

func (p *Persistence) UpdateBrowserConfigSessionStatus(_ context.Context, userID, tenant string, status models.SessionStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, config := range p.browserConfigs {
		if config.UserID != userID || config.Tenant != tenant {
			continue
		}

		if config.SessionStatus == status {
			continue
		}

		config.SessionStatus = status
		config.UpdatedAt = p.now()
		p.browserConfigs[id] = config
	}

	return nil
}
