package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/taskmesh/pkg/future"
	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/objectstore"
	"github.com/taskmesh/taskmesh/pkg/types"
)

// fakeRegistrar is a Registrar recording every AddWorker/RemoveWorker/
// TaskComplete call, standing in for a real scheduler.Scheduler.
type fakeRegistrar struct {
	mu        sync.Mutex
	added     []ids.WorkerID
	removed   []ids.WorkerID
	completed map[ids.TaskID]future.State
	accept    bool
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{accept: true, completed: make(map[ids.TaskID]future.State)}
}

func (r *fakeRegistrar) AddWorker(workerID ids.WorkerID, _ map[types.Token]int64, _ uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.accept {
		return false
	}
	r.added = append(r.added, workerID)
	return true
}

func (r *fakeRegistrar) RemoveWorker(workerID ids.WorkerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, workerID)
}

func (r *fakeRegistrar) TaskComplete(taskID ids.TaskID, state future.State, _ ids.ObjectID, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[taskID] = state
}

func (r *fakeRegistrar) stateOf(taskID ids.TaskID) (future.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.completed[taskID]
	return s, ok
}

func TestFleet_SpawnRegistersWorkerAndStartsAgent(t *testing.T) {
	registrar := newFakeRegistrar()
	fleet := NewFleet(registrar, objectstore.NewMemoryConnector(), time.Millisecond)

	workerID, err := fleet.Spawn(nil, 4)
	require.NoError(t, err)

	registrar.mu.Lock()
	defer registrar.mu.Unlock()
	assert.Contains(t, registrar.added, workerID)
}

func TestFleet_SpawnReturnsErrorWhenRegistrarRejects(t *testing.T) {
	registrar := newFakeRegistrar()
	registrar.accept = false
	fleet := NewFleet(registrar, objectstore.NewMemoryConnector(), time.Millisecond)

	_, err := fleet.Spawn(nil, 4)
	assert.Error(t, err)
}

func TestFleet_DispatchTaskReportsSuccessAfterSimulatedExecution(t *testing.T) {
	registrar := newFakeRegistrar()
	fleet := NewFleet(registrar, objectstore.NewMemoryConnector(), 5*time.Millisecond)

	workerID, err := fleet.Spawn(nil, 4)
	require.NoError(t, err)

	taskID := ids.NewTaskID()
	require.NoError(t, fleet.DispatchTask(context.Background(), workerID, types.Task{TaskID: taskID}))

	require.Eventually(t, func() bool {
		_, ok := registrar.stateOf(taskID)
		return ok
	}, time.Second, 5*time.Millisecond)

	state, _ := registrar.stateOf(taskID)
	assert.Equal(t, future.StateSuccess, state)
}

func TestFleet_DispatchTaskToUnknownWorkerReturnsError(t *testing.T) {
	registrar := newFakeRegistrar()
	fleet := NewFleet(registrar, objectstore.NewMemoryConnector(), time.Millisecond)

	err := fleet.DispatchTask(context.Background(), ids.NewWorkerID(), types.Task{TaskID: ids.NewTaskID()})
	assert.ErrorIs(t, err, ErrUnknownWorker)
}

func TestFleet_EvictTaskCancelsInFlightExecutionAsCancelled(t *testing.T) {
	registrar := newFakeRegistrar()
	fleet := NewFleet(registrar, objectstore.NewMemoryConnector(), time.Hour)

	workerID, err := fleet.Spawn(nil, 4)
	require.NoError(t, err)

	taskID := ids.NewTaskID()
	require.NoError(t, fleet.DispatchTask(context.Background(), workerID, types.Task{TaskID: taskID}))

	require.NoError(t, fleet.EvictTask(context.Background(), workerID, taskID))

	require.Eventually(t, func() bool {
		_, ok := registrar.stateOf(taskID)
		return ok
	}, time.Second, 5*time.Millisecond)

	state, _ := registrar.stateOf(taskID)
	assert.Equal(t, future.StateCancelled, state)
}

func TestFleet_EvictTaskAfterCompletionReturnsError(t *testing.T) {
	registrar := newFakeRegistrar()
	fleet := NewFleet(registrar, objectstore.NewMemoryConnector(), time.Millisecond)

	workerID, err := fleet.Spawn(nil, 4)
	require.NoError(t, err)

	taskID := ids.NewTaskID()
	require.NoError(t, fleet.DispatchTask(context.Background(), workerID, types.Task{TaskID: taskID}))

	require.Eventually(t, func() bool {
		_, ok := registrar.stateOf(taskID)
		return ok
	}, time.Second, 5*time.Millisecond)

	assert.Error(t, fleet.EvictTask(context.Background(), workerID, taskID))
}

func TestFleet_RetireStopsAgentAndDeregisters(t *testing.T) {
	registrar := newFakeRegistrar()
	fleet := NewFleet(registrar, objectstore.NewMemoryConnector(), time.Hour)

	workerID, err := fleet.Spawn(nil, 4)
	require.NoError(t, err)

	fleet.Retire(workerID)

	registrar.mu.Lock()
	defer registrar.mu.Unlock()
	assert.Contains(t, registrar.removed, workerID)

	assert.ErrorIs(t, fleet.DispatchTask(context.Background(), workerID, types.Task{TaskID: ids.NewTaskID()}), ErrUnknownWorker)
}

func TestFleet_RetireCancelsTasksStillRunning(t *testing.T) {
	registrar := newFakeRegistrar()
	fleet := NewFleet(registrar, objectstore.NewMemoryConnector(), time.Hour)

	workerID, err := fleet.Spawn(nil, 4)
	require.NoError(t, err)

	taskID := ids.NewTaskID()
	require.NoError(t, fleet.DispatchTask(context.Background(), workerID, types.Task{TaskID: taskID}))

	fleet.Retire(workerID)

	state, ok := registrar.stateOf(taskID)
	require.True(t, ok)
	assert.Equal(t, future.StateCancelled, state)
}
