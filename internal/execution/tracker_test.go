package execution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/swell/internal/core/config"
	model "github.com/tigerroll/swell/internal/core/domain/model"
)

func trackerConfig(graceSeconds int) *config.Config {
	cfg := config.NewConfig()
	cfg.Swell.Execution.RetentionGraceSeconds = graceSeconds
	return cfg
}

func TestTrackerRegisterMirrorsToStore(t *testing.T) {
	store := newFakeExecutionStore()
	tracker := NewTracker(trackerConfig(30), store)

	execution := model.NewExecution("batch-1")
	tracker.Register(context.Background(), execution)

	assert.Equal(t, 1, store.saves())

	got, err := tracker.Get(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.ID, got.ID)
}

func TestTrackerUpdateMirrorCadence(t *testing.T) {
	store := newFakeExecutionStore()
	tracker := NewTracker(trackerConfig(30), store)

	execution := model.NewExecution("batch-1")
	tracker.Register(context.Background(), execution)
	saves := store.saves()

	execution.Current = 1
	tracker.Update(context.Background(), execution, false)
	assert.Equal(t, saves, store.saves())

	execution.Current = 10
	tracker.Update(context.Background(), execution, true)
	assert.Equal(t, saves+1, store.saves())
}

func TestTrackerGetReturnsCopies(t *testing.T) {
	store := newFakeExecutionStore()
	tracker := NewTracker(trackerConfig(30), store)

	execution := model.NewExecution("batch-1")
	tracker.Register(context.Background(), execution)

	first, err := tracker.Get(context.Background(), execution.ID)
	require.NoError(t, err)
	first.SuccessCount = 42

	second, err := tracker.Get(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Zero(t, second.SuccessCount)
}

func TestTrackerGetFallsBackToStore(t *testing.T) {
	store := newFakeExecutionStore()
	execution := model.NewExecution("batch-1")
	require.NoError(t, store.SaveExecution(context.Background(), execution))

	// A fresh tracker simulates a process restart: memory is empty but the
	// durable mirror still has the row.
	tracker := NewTracker(trackerConfig(30), store)

	got, err := tracker.Get(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.ID, got.ID)
}

func TestTrackerGetUnknownExecution(t *testing.T) {
	tracker := NewTracker(trackerConfig(30), newFakeExecutionStore())

	_, err := tracker.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestTrackerFinishEvictsAfterGrace(t *testing.T) {
	store := newFakeExecutionStore()
	tracker := NewTracker(trackerConfig(1), store)

	execution := model.NewExecution("batch-1")
	execution.MarkAsCompleted()
	tracker.Finish(context.Background(), execution)

	// Still readable from memory during the grace period.
	_, err := tracker.Get(context.Background(), execution.ID)
	require.NoError(t, err)

	// After eviction the tracker falls back to the store; removing the durable
	// row exposes whether the in-memory entry is gone.
	require.NoError(t, store.DeleteExecution(context.Background(), execution.ID))

	assert.Eventually(t, func() bool {
		_, err := tracker.Get(context.Background(), execution.ID)
		return err != nil
	}, 3*time.Second, 50*time.Millisecond)
}
