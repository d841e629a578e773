package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/taskmesh/pkg/allocator"
	"github.com/taskmesh/taskmesh/pkg/events"
	"github.com/taskmesh/taskmesh/pkg/future"
	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/objectstore"
	"github.com/taskmesh/taskmesh/pkg/types"
)

// recordingTransport is a fake ControlTransport that records dispatches
// and lets tests control whether eviction succeeds, simulating whether a
// worker has already started executing a task.
type recordingTransport struct {
	mu         sync.Mutex
	dispatched map[ids.TaskID]ids.WorkerID
	evictable  map[ids.TaskID]bool
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		dispatched: make(map[ids.TaskID]ids.WorkerID),
		evictable:  make(map[ids.TaskID]bool),
	}
}

func (t *recordingTransport) DispatchTask(_ context.Context, workerID ids.WorkerID, task types.Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispatched[task.TaskID] = workerID
	t.evictable[task.TaskID] = true
	return nil
}

func (t *recordingTransport) EvictTask(_ context.Context, workerID ids.WorkerID, taskID ids.TaskID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.evictable[taskID] {
		return errors.New("scheduler_test: task already started, cannot evict")
	}
	if t.dispatched[taskID] == workerID {
		delete(t.dispatched, taskID)
	}
	return nil
}

func decodeSuccess(b []byte) (any, error) { return string(b), nil }
func decodeFailure(b []byte) error        { return errors.New(string(b)) }

func newTestScheduler() (*Scheduler, *recordingTransport, *objectstore.MemoryConnector) {
	policy := allocator.NewEvenLoadPolicy(zerolog.Nop())
	transport := newRecordingTransport()
	connector := objectstore.NewMemoryConnector()
	return NewScheduler(policy, transport, connector, nil, decodeSuccess, decodeFailure), transport, connector
}

func task() types.Task {
	return types.Task{TaskID: ids.NewTaskID()}
}

func TestSubmitTask_DispatchesImmediatelyWhenCapacityExists(t *testing.T) {
	s, transport, _ := newTestScheduler()
	worker := ids.NewWorkerID()
	require.True(t, s.AddWorker(worker, nil, 4))

	tk := task()
	f := s.SubmitTask(tk, false)

	require.Eventually(t, func() bool {
		transport.mu.Lock()
		defer transport.mu.Unlock()
		_, ok := transport.dispatched[tk.TaskID]
		return ok
	}, time.Second, 5*time.Millisecond)

	assert.False(t, f.Done())
}

func TestSubmitTask_ParksWhenNoCapacity(t *testing.T) {
	s, transport, _ := newTestScheduler()

	tk := task()
	f := s.SubmitTask(tk, false)

	transport.mu.Lock()
	_, dispatched := transport.dispatched[tk.TaskID]
	transport.mu.Unlock()
	assert.False(t, dispatched)
	assert.False(t, f.Done())

	s.mu.Lock()
	parkedCount := len(s.parked)
	s.mu.Unlock()
	assert.Equal(t, 1, parkedCount)
}

func TestAddWorker_RetriesParkedTasks(t *testing.T) {
	s, transport, _ := newTestScheduler()

	tk := task()
	s.SubmitTask(tk, false)

	worker := ids.NewWorkerID()
	require.True(t, s.AddWorker(worker, nil, 4))

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Contains(t, transport.dispatched, tk.TaskID)
}

func TestRemoveWorker_ParksStrandedTasks(t *testing.T) {
	s, _, _ := newTestScheduler()
	worker := ids.NewWorkerID()
	require.True(t, s.AddWorker(worker, nil, 4))

	tk := task()
	s.SubmitTask(tk, false)

	s.RemoveWorker(worker)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.parked, 1)
	assert.Equal(t, tk.TaskID, s.parked[0].TaskID)
}

func TestTaskComplete_CompletesFutureWithDecodedResult(t *testing.T) {
	s, _, connector := newTestScheduler()
	worker := ids.NewWorkerID()
	require.True(t, s.AddWorker(worker, nil, 4))

	tk := task()
	f := s.SubmitTask(tk, false)

	objID, err := connector.Set(context.Background(), []byte("done"))
	require.NoError(t, err)

	s.TaskComplete(tk.TaskID, future.StateSuccess, objID, nil)

	val, err := f.Result(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "done", val)
}

func TestCancel_LosesRaceToCompletion(t *testing.T) {
	s, transport, connector := newTestScheduler()
	worker := ids.NewWorkerID()
	require.True(t, s.AddWorker(worker, nil, 4))

	tk := task()
	f := s.SubmitTask(tk, false)

	require.Eventually(t, func() bool {
		transport.mu.Lock()
		defer transport.mu.Unlock()
		_, ok := transport.dispatched[tk.TaskID]
		return ok
	}, time.Second, 5*time.Millisecond)

	// Simulate the worker having already started executing: eviction
	// will fail and the task completes normally.
	transport.mu.Lock()
	transport.evictable[tk.TaskID] = false
	transport.mu.Unlock()

	objID, err := connector.Set(context.Background(), []byte("finished"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		ok, cancelErr := f.Cancel(time.Second)
		assert.NoError(t, cancelErr)
		assert.False(t, ok)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	s.TaskComplete(tk.TaskID, future.StateSuccess, objID, nil)

	<-done
	assert.True(t, f.Done())
	assert.False(t, f.Cancelled())
}

func TestEvictAndReassign_MovesTaskToNewWorker(t *testing.T) {
	s, transport, _ := newTestScheduler()
	w1 := ids.NewWorkerID()
	w2 := ids.NewWorkerID()
	require.True(t, s.AddWorker(w1, nil, 4))

	tk := task()
	s.SubmitTask(tk, false)
	// A second task keeps w1 busier than w2 once tk is removed, so the
	// least-loaded pick goes to w2 rather than to a worker-ID tie-break.
	s.SubmitTask(task(), false)

	require.True(t, s.AddWorker(w2, nil, 4))

	ok := s.EvictAndReassign(w1, tk.TaskID)
	require.True(t, ok)

	assert.Equal(t, w2, s.policy.GetWorkerByTaskID(tk.TaskID))

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Equal(t, w2, transport.dispatched[tk.TaskID])
}

func TestEvictAndReassign_UnknownTaskReturnsFalse(t *testing.T) {
	s, _, _ := newTestScheduler()
	assert.False(t, s.EvictAndReassign(ids.NewWorkerID(), ids.NewTaskID()))
}

func TestBalance_DelegatesToPolicy(t *testing.T) {
	s, _, _ := newTestScheduler()
	assert.Empty(t, s.Balance())
}

func TestBalance_AdvisesMovesAfterWorkerJoins(t *testing.T) {
	s, _, _ := newTestScheduler()
	w1 := ids.NewWorkerID()
	require.True(t, s.AddWorker(w1, nil, 8))

	for i := 0; i < 8; i++ {
		s.SubmitTask(task(), false)
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	w2 := ids.NewWorkerID()
	require.True(t, s.AddWorker(w2, nil, 8))

	advice := s.Balance()
	assert.NotEmpty(t, advice)
}
