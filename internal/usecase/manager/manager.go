// Package manager owns the live set of scraper.Instance schedulers, one per
// source, and the operations the admin surface (spec §6: trigger/status/
// initialize/delete) and the coarse reconcile loop both need against that
// set. Grounded on the teacher's internal/usecase/source/service.go
// (since deleted) for the CRUD-over-a-repository shape, combined with
// internal/usecase/scraper.Instance's own lifecycle methods.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"feedmill/internal/domain/entity"
	"feedmill/internal/repository"
	"feedmill/internal/usecase/scraper"
)

// InstanceFactory builds a new scraper.Instance for sourceID. Injected so
// Manager doesn't need to know about Fetcher/Publisher/repo wiring.
type InstanceFactory func(sourceID int64) *scraper.Instance

// Manager tracks one scraper.Instance per known source. Safe for concurrent
// use.
type Manager struct {
	sources repository.SourceRepository
	newInst InstanceFactory
	logger  *slog.Logger

	mu        sync.Mutex
	instances map[int64]*scraper.Instance
}

// New builds a Manager. newInst is called once per source the first time
// Manager needs to run or destroy its scheduler.
func New(sources repository.SourceRepository, newInst InstanceFactory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sources:   sources,
		newInst:   newInst,
		logger:    logger,
		instances: make(map[int64]*scraper.Instance),
	}
}

func (m *Manager) instanceFor(sourceID int64) *scraper.Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[sourceID]
	if !ok {
		inst = m.newInst(sourceID)
		m.instances[sourceID] = inst
	}
	return inst
}

// Initialize arms a fresh schedule for sourceID (spec §6 POST /initialize).
func (m *Manager) Initialize(ctx context.Context, sourceID int64) error {
	inst := m.instanceFor(sourceID)
	return inst.Initialize(ctx)
}

// Trigger fires an immediate tick for sourceID (spec §6 POST /trigger).
// Returns an error if no instance has ever been created for this source.
func (m *Manager) Trigger(sourceID int64) error {
	m.mu.Lock()
	inst, ok := m.instances[sourceID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("manager: no scheduler running for source %d", sourceID)
	}
	inst.Trigger()
	return nil
}

// Status returns sourceID's scheduler status (spec §6 GET /status).
func (m *Manager) Status(sourceID int64) (entity.SchedulerStatus, error) {
	m.mu.Lock()
	inst, ok := m.instances[sourceID]
	m.mu.Unlock()
	if !ok {
		return entity.SchedulerStatus{State: entity.SchedulerUninitialized}, nil
	}
	return inst.Status(), nil
}

// Destroy tears down sourceID's scheduler and drops it from the set (spec
// §6 DELETE /delete). A no-op if no instance exists.
func (m *Manager) Destroy(ctx context.Context, sourceID int64) error {
	m.mu.Lock()
	inst, ok := m.instances[sourceID]
	delete(m.instances, sourceID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return inst.Destroy(ctx)
}

// ReconcileResult reports what a Reconcile pass changed.
type ReconcileResult struct {
	Initialized int
	Destroyed   int
}

// Reconcile lists every known source and makes sure each has a running
// scheduler: newly-created sources are initialized, and tracked instances
// whose source has since been deleted are destroyed. This is the coarse
// robfig/cron-driven sweep referenced in DESIGN.md as the reason
// robfig/cron stays wired even though each source's own tick interval is
// driven by time.AfterFunc, not by cron.
func (m *Manager) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult

	sources, err := m.sources.List(ctx)
	if err != nil {
		return result, fmt.Errorf("manager: list sources: %w", err)
	}

	live := make(map[int64]bool, len(sources))
	for _, s := range sources {
		live[s.ID] = true
		if s.Initialized() {
			continue
		}
		if err := m.Initialize(ctx, s.ID); err != nil {
			m.logger.Error("manager: failed to initialize source", slog.Int64("sourceId", s.ID), slog.Any("error", err))
			continue
		}
		result.Initialized++
		m.logger.Info("manager: source initialized by reconcile", slog.Int64("sourceId", s.ID))
	}

	m.mu.Lock()
	var stale []int64
	for id := range m.instances {
		if !live[id] {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		if err := m.Destroy(ctx, id); err != nil {
			m.logger.Error("manager: failed to destroy stale source scheduler", slog.Int64("sourceId", id), slog.Any("error", err))
			continue
		}
		result.Destroyed++
		m.logger.Info("manager: stale source scheduler destroyed by reconcile", slog.Int64("sourceId", id))
	}

	return result, nil
}
