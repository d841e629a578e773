package reconciler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/taskmesh/pkg/events"
	"github.com/taskmesh/taskmesh/pkg/ids"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	advice   map[ids.WorkerID][]ids.TaskID
	accept   bool
	replayed []ids.TaskID
	calls    int
}

func (f *fakeDispatcher) Balance() map[ids.WorkerID][]ids.TaskID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	advice := f.advice
	f.advice = nil
	return advice
}

func (f *fakeDispatcher) EvictAndReassign(fromWorker ids.WorkerID, taskID ids.TaskID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.accept {
		return false
	}
	f.replayed = append(f.replayed, taskID)
	return true
}

func TestReconciler_ReplaysBalanceAdvice(t *testing.T) {
	worker := ids.NewWorkerID()
	task := ids.NewTaskID()
	dispatcher := &fakeDispatcher{
		advice: map[ids.WorkerID][]ids.TaskID{worker: {task}},
		accept: true,
	}

	r := NewReconciler(dispatcher, nil)
	r.reconcile()

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	require.Len(t, dispatcher.replayed, 1)
	assert.Equal(t, task, dispatcher.replayed[0])
}

func TestReconciler_NoOpWhenBalanceReturnsNothing(t *testing.T) {
	dispatcher := &fakeDispatcher{accept: true}
	r := NewReconciler(dispatcher, nil)
	r.reconcile()

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.Empty(t, dispatcher.replayed)
	assert.Equal(t, 1, dispatcher.calls)
}

func TestReconciler_UnreplayableAdviceIsNotRetriedWithinCycle(t *testing.T) {
	worker := ids.NewWorkerID()
	task := ids.NewTaskID()
	dispatcher := &fakeDispatcher{
		advice: map[ids.WorkerID][]ids.TaskID{worker: {task}},
		accept: false,
	}

	r := NewReconciler(dispatcher, nil)
	r.reconcile()

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.Empty(t, dispatcher.replayed)
}

func TestReconciler_WorkerJoinedEventTriggersImmediateRebalance(t *testing.T) {
	worker := ids.NewWorkerID()
	task := ids.NewTaskID()
	dispatcher := &fakeDispatcher{
		advice: map[ids.WorkerID][]ids.TaskID{worker: {task}},
		accept: true,
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	r := NewReconciler(dispatcher, broker)
	r.interval = time.Hour
	r.Start()
	defer r.Stop()

	broker.Publish(&events.Event{Type: events.EventWorkerJoined})

	require.Eventually(t, func() bool {
		dispatcher.mu.Lock()
		defer dispatcher.mu.Unlock()
		return len(dispatcher.replayed) == 1
	}, time.Second, 5*time.Millisecond)
}
