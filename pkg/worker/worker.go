package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskmesh/taskmesh/pkg/future"
	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/log"
	"github.com/taskmesh/taskmesh/pkg/metrics"
	"github.com/taskmesh/taskmesh/pkg/objectstore"
	"github.com/taskmesh/taskmesh/pkg/types"
)

// Registrar is the subset of a scheduler an Agent's lifecycle drives:
// AddWorker/RemoveWorker on join/leave, TaskComplete once a dispatched
// task finishes. It is satisfied by *scheduler.Scheduler without this
// package importing pkg/scheduler, the same inversion pkg/reconciler's
// Dispatcher interface uses to avoid a cycle.
type Registrar interface {
	AddWorker(workerID ids.WorkerID, resources map[types.Token]int64, queueSize uint32) bool
	RemoveWorker(workerID ids.WorkerID)
	TaskComplete(taskID ids.TaskID, state future.State, resultObjectID ids.ObjectID, profiling any)
}

// ErrUnknownWorker is returned by Fleet.DispatchTask/EvictTask for a
// workerID no longer (or never) tracked by the fleet.
var ErrUnknownWorker = errors.New("worker: unknown worker")

// Fleet simulates a population of worker agents in-process. It implements
// scheduler.ControlTransport, routing DispatchTask/EvictTask to the agent
// for the named worker, standing in for the wire transport and the
// real execution sandbox a deployed worker process would run tasks in.
type Fleet struct {
	registrar    Registrar
	connector    objectstore.Connector
	execDuration time.Duration
	logger       zerolog.Logger

	mu     sync.Mutex
	agents map[ids.WorkerID]*agent
}

// NewFleet creates a Fleet that registers and retires agents through
// registrar and stores simulated task results through connector.
// execDuration is how long a dispatched task simulates running for
// before reporting success.
func NewFleet(registrar Registrar, connector objectstore.Connector, execDuration time.Duration) *Fleet {
	return &Fleet{
		registrar:    registrar,
		connector:    connector,
		execDuration: execDuration,
		logger:       log.WithComponent("worker"),
		agents:       make(map[ids.WorkerID]*agent),
	}
}

// Spawn generates a fresh WorkerID, registers it with the registrar under
// the given capabilities, starts its heartbeat loop and returns the ID.
func (f *Fleet) Spawn(resources map[types.Token]int64, queueSize uint32) (ids.WorkerID, error) {
	workerID := ids.NewWorkerID()
	if !f.registrar.AddWorker(workerID, resources, queueSize) {
		return ids.InvalidWorkerID, fmt.Errorf("worker: registrar rejected worker %s", workerID)
	}

	a := newAgent(workerID, f.connector, f.registrar, f.execDuration)
	f.mu.Lock()
	f.agents[workerID] = a
	f.mu.Unlock()

	a.start()
	return workerID, nil
}

// Retire stops workerID's agent, cancelling any task still in flight, and
// deregisters it from the scheduler.
func (f *Fleet) Retire(workerID ids.WorkerID) {
	f.mu.Lock()
	a, ok := f.agents[workerID]
	delete(f.agents, workerID)
	f.mu.Unlock()
	if !ok {
		return
	}

	a.stop()
	f.registrar.RemoveWorker(workerID)
}

// DispatchTask implements scheduler.ControlTransport.
func (f *Fleet) DispatchTask(_ context.Context, workerID ids.WorkerID, task types.Task) error {
	f.mu.Lock()
	a, ok := f.agents[workerID]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, workerID)
	}
	return a.dispatch(task)
}

// EvictTask implements scheduler.ControlTransport.
func (f *Fleet) EvictTask(_ context.Context, workerID ids.WorkerID, taskID ids.TaskID) error {
	f.mu.Lock()
	a, ok := f.agents[workerID]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, workerID)
	}
	return a.evict(taskID)
}

// agent simulates a single worker process: a heartbeat loop and a
// task-ack loop that "executes" dispatched tasks by sleeping for a fixed
// duration before writing a result object and reporting completion.
type agent struct {
	workerID     ids.WorkerID
	connector    objectstore.Connector
	registrar    Registrar
	execDuration time.Duration
	logger       zerolog.Logger

	mu      sync.Mutex
	running map[ids.TaskID]context.CancelFunc

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newAgent(workerID ids.WorkerID, connector objectstore.Connector, registrar Registrar, execDuration time.Duration) *agent {
	return &agent{
		workerID:     workerID,
		connector:    connector,
		registrar:    registrar,
		execDuration: execDuration,
		logger:       log.WithWorkerID(workerID.String()),
		running:      make(map[ids.TaskID]context.CancelFunc),
		stopCh:       make(chan struct{}),
	}
}

func (a *agent) start() {
	a.wg.Add(1)
	go a.heartbeatLoop()
	a.logger.Info().Msg("worker agent started")
}

// stop cancels every task still executing and waits for the heartbeat
// loop and every in-flight execution goroutine to return.
func (a *agent) stop() {
	close(a.stopCh)

	a.mu.Lock()
	for _, cancel := range a.running {
		cancel()
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info().Msg("worker agent stopped")
}

func (a *agent) heartbeatLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.logger.Debug().Msg("heartbeat")
		case <-a.stopCh:
			return
		}
	}
}

// dispatch starts executing task in the background, reporting to the
// registrar asynchronously once it finishes, is evicted, or fails.
func (a *agent) dispatch(task types.Task) error {
	select {
	case <-a.stopCh:
		return errors.New("worker: agent already stopped")
	default:
	}

	taskCtx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	a.running[task.TaskID] = cancel
	a.mu.Unlock()

	a.wg.Add(1)
	go a.execute(taskCtx, task)
	return nil
}

func (a *agent) execute(ctx context.Context, task types.Task) {
	defer a.wg.Done()
	a.logger.Debug().Str("task_id", task.TaskID.String()).Msg("task-ack: executing")

	select {
	case <-time.After(a.execDuration):
	case <-ctx.Done():
		// evict() already removed the running entry and reported
		// Cancelled itself if it won this race; only report here if it
		// didn't (clearRunning still finds the entry).
		if a.clearRunning(task.TaskID) {
			a.finish(task.TaskID, future.StateCancelled, ids.InvalidObjectID, nil)
		}
		return
	}

	if !a.clearRunning(task.TaskID) {
		// Already evicted between the timer firing and this goroutine
		// regaining the scheduler: the eviction already reported the
		// terminal state, so there is nothing left to report here.
		return
	}

	objID, err := a.connector.Set(context.Background(), []byte("task-ack: simulated result"))
	if err != nil {
		a.logger.Error().Err(err).Str("task_id", task.TaskID.String()).Msg("failed to store simulated result")
		a.registrar.TaskComplete(task.TaskID, future.StateFailed, ids.InvalidObjectID, nil)
		return
	}
	a.finish(task.TaskID, future.StateSuccess, objID, nil)
}

// evict cancels taskID's execution if it is still running, returning an
// error the same way a real agent would reject an eviction that lost
// the race to the task already finishing.
func (a *agent) evict(taskID ids.TaskID) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CancelAckDuration)

	a.mu.Lock()
	cancel, ok := a.running[taskID]
	if ok {
		delete(a.running, taskID)
	}
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("worker: task %s already finished, cannot evict", taskID)
	}

	// Own reporting the cancellation here: execute's goroutine may have
	// already passed its select by the time cancel() below is observed,
	// in which case it will find the running entry already gone and
	// skip reporting, avoiding a duplicate TaskComplete call.
	cancel()
	a.registrar.TaskComplete(taskID, future.StateCancelled, ids.InvalidObjectID, nil)
	return nil
}

func (a *agent) clearRunning(taskID ids.TaskID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.running[taskID]; !ok {
		return false
	}
	delete(a.running, taskID)
	return true
}

func (a *agent) finish(taskID ids.TaskID, state future.State, objID ids.ObjectID, profiling any) {
	a.registrar.TaskComplete(taskID, state, objID, profiling)
}
