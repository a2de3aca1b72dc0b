// Package execution implements batch run orchestration and progress
// tracking: the in-memory execution tracker with its durable mirror, and
// the orchestrator that drives a batch run end to end.
package execution

import (
	"context"
	"sync"
	"time"

	config "github.com/tigerroll/swell/internal/core/config"
	model "github.com/tigerroll/swell/internal/core/domain/model"
	repository "github.com/tigerroll/swell/internal/core/domain/repository"
	"github.com/tigerroll/swell/internal/support/logger"
)

// Tracker holds in-flight executions in memory and mirrors their progress to
// the durable store. Reads hit memory first and fall back to the durable row,
// so progress stays visible across a process restart. All returned executions
// are copies, never internal pointers.
type Tracker struct {
	mu         sync.RWMutex
	executions map[string]*model.Execution

	store          repository.ExecutionRepository
	mirrorInterval int
	grace          time.Duration
}

// NewTracker creates a Tracker backed by the durable execution store.
func NewTracker(cfg *config.Config, store repository.ExecutionRepository) *Tracker {
	mirrorInterval := cfg.Swell.Execution.MirrorInterval
	if mirrorInterval <= 0 {
		mirrorInterval = 10
	}
	grace := time.Duration(cfg.Swell.Execution.RetentionGraceSeconds) * time.Second
	if grace <= 0 {
		grace = 30 * time.Second
	}
	return &Tracker{
		executions:     make(map[string]*model.Execution),
		store:          store,
		mirrorInterval: mirrorInterval,
		grace:          grace,
	}
}

// MirrorInterval returns how many records are processed between durable
// progress writes.
func (t *Tracker) MirrorInterval() int {
	return t.mirrorInterval
}

// Register adds a new execution to the tracker and writes its initial
// durable mirror.
func (t *Tracker) Register(ctx context.Context, execution *model.Execution) {
	t.put(execution)
	t.mirror(ctx, execution)
}

// Update stores the current state of an execution. The durable mirror is
// written only when mirror is true; in-memory state is always current.
func (t *Tracker) Update(ctx context.Context, execution *model.Execution, mirror bool) {
	t.put(execution)
	if mirror {
		t.mirror(ctx, execution)
	}
}

// Finish stores the terminal state of an execution, writes the durable
// mirror, and schedules eviction of the in-memory entry after the grace
// period.
func (t *Tracker) Finish(ctx context.Context, execution *model.Execution) {
	t.put(execution)
	t.mirror(ctx, execution)

	id := execution.ID
	time.AfterFunc(t.grace, func() {
		t.mu.Lock()
		delete(t.executions, id)
		t.mu.Unlock()
		logger.Debugf("Evicted finished execution %s from memory.", id)
	})
}

// Get returns a copy of the execution, falling back to the durable store
// when the execution is not in memory.
func (t *Tracker) Get(ctx context.Context, id string) (*model.Execution, error) {
	t.mu.RLock()
	execution, ok := t.executions[id]
	if ok {
		clone := execution.Clone()
		t.mu.RUnlock()
		return clone, nil
	}
	t.mu.RUnlock()

	return t.store.FindExecutionByID(ctx, id)
}

func (t *Tracker) put(execution *model.Execution) {
	t.mu.Lock()
	t.executions[execution.ID] = execution.Clone()
	t.mu.Unlock()
}

// mirror writes the execution to the durable store. Mirror failures are
// logged and never fail a run.
func (t *Tracker) mirror(ctx context.Context, execution *model.Execution) {
	if err := t.store.SaveExecution(ctx, execution.Clone()); err != nil {
		logger.Warnf("Failed to mirror execution %s to durable store: %v", execution.ID, err)
	}
}
