package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskmesh/taskmesh/pkg/allocator"
	"github.com/taskmesh/taskmesh/pkg/events"
	"github.com/taskmesh/taskmesh/pkg/future"
	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/log"
	"github.com/taskmesh/taskmesh/pkg/metrics"
	"github.com/taskmesh/taskmesh/pkg/objectstore"
	"github.com/taskmesh/taskmesh/pkg/types"
)

// ControlTransport carries control-plane messages to worker processes.
// This repo ships no network implementation - only pkg/worker's
// in-process simulated agent and a recording fake used by tests.
type ControlTransport interface {
	// DispatchTask tells workerID to begin executing task.
	DispatchTask(ctx context.Context, workerID ids.WorkerID, task types.Task) error

	// EvictTask asks workerID to drop taskID before it starts executing.
	// Implementations return an error if the task has already started or
	// finished, letting the scheduler's cancellation path lose the race
	// to completion rather than report a task as cancelled after it has
	// already produced a result.
	EvictTask(ctx context.Context, workerID ids.WorkerID, taskID ids.TaskID) error
}

// Scheduler is a thin process wiring a worker registry/policy together
// with a control transport, metrics, and the futures bridge; a
// pkg/reconciler.Reconciler built around it drives its rebalancing. It stands in for
// the out-of-scope top-level event loop: just enough of a harness to
// submit tasks, observe worker membership changes, and replay rebalance
// advice, exercised by tests and cmd/dispatchd.
type Scheduler struct {
	policy    allocator.Policy
	transport ControlTransport
	connector objectstore.Connector
	broker    *events.Broker
	logger    zerolog.Logger

	decodeSuccess future.DecodeSuccess
	decodeFailure future.DecodeFailure

	mu         sync.Mutex
	tasks      map[ids.TaskID]types.Task
	futures    map[ids.TaskID]*future.Future
	assignedAt map[ids.TaskID]time.Time
	parked     []types.Task

	stopCh chan struct{}
}

// NewScheduler creates a new scheduler driving policy.
func NewScheduler(policy allocator.Policy, transport ControlTransport, connector objectstore.Connector, broker *events.Broker, decodeSuccess future.DecodeSuccess, decodeFailure future.DecodeFailure) *Scheduler {
	return &Scheduler{
		policy:        policy,
		transport:     transport,
		connector:     connector,
		broker:        broker,
		logger:        log.WithComponent("scheduler"),
		decodeSuccess: decodeSuccess,
		decodeFailure: decodeFailure,
		tasks:         make(map[ids.TaskID]types.Task),
		futures:       make(map[ids.TaskID]*future.Future),
		assignedAt:    make(map[ids.TaskID]time.Time),
		stopCh:        make(chan struct{}),
	}
}

// Start begins the parked-task retry loop.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.retryParked()
		case <-s.stopCh:
			return
		}
	}
}

// AddWorker registers a worker with the active policy and immediately
// retries any parked tasks, since new capacity just appeared.
func (s *Scheduler) AddWorker(workerID ids.WorkerID, resources map[types.Token]int64, queueSize uint32) bool {
	if !s.policy.AddWorker(workerID, resources, queueSize) {
		return false
	}

	s.logger.Info().Str("worker_id", workerID.String()).Msg("worker joined")
	if s.broker != nil {
		s.broker.Publish(&events.Event{
			Type:     events.EventWorkerJoined,
			Metadata: map[string]string{"worker_id": workerID.String()},
		})
	}

	s.retryParked()
	return true
}

// RemoveWorker deregisters a worker, parking its stranded tasks for
// reassignment on the next retry cycle.
func (s *Scheduler) RemoveWorker(workerID ids.WorkerID) {
	stranded := s.policy.RemoveWorker(workerID)

	s.mu.Lock()
	for _, taskID := range stranded {
		if task, ok := s.tasks[taskID]; ok {
			s.parked = append(s.parked, task)
		}
	}
	s.mu.Unlock()

	s.logger.Info().Str("worker_id", workerID.String()).Int("stranded_tasks", len(stranded)).Msg("worker left")
	if s.broker != nil {
		s.broker.Publish(&events.Event{
			Type:     events.EventWorkerLeft,
			Metadata: map[string]string{"worker_id": workerID.String(), "stranded_tasks": strconv.Itoa(len(stranded))},
		})
	}
}

// SubmitTask registers task with the scheduler and returns its
// client-visible future immediately. If a capable worker with a free
// slot exists, the task is dispatched right away; otherwise it is
// parked and retried on the next tick or worker join, whether no worker
// currently advertises the required capability or every capable worker
// is simply full.
func (s *Scheduler) SubmitTask(task types.Task, delayed bool, opts ...future.Option) *future.Future {
	f := future.New(task.TaskID, delayed, s.connector, s.decodeSuccess, s.decodeFailure, s, opts...)

	s.mu.Lock()
	s.tasks[task.TaskID] = task
	s.futures[task.TaskID] = f
	s.mu.Unlock()

	if !s.tryAssign(task) {
		s.mu.Lock()
		s.parked = append(s.parked, task)
		s.mu.Unlock()
		if s.broker != nil {
			s.broker.Publish(&events.Event{Type: events.EventTaskQueued, Metadata: map[string]string{"task_id": task.TaskID.String()}})
		}
	}

	return f
}

// tryAssign attempts to place task with the current policy and, on
// success, dispatches it. It reports whether placement succeeded.
func (s *Scheduler) tryAssign(task types.Task) bool {
	timer := metrics.NewTimer()
	workerID := s.policy.AssignTask(task)
	timer.ObserveDuration(metrics.AssignmentDuration)

	if !workerID.IsValid() {
		metrics.AssignmentsTotal.WithLabelValues("rejected").Inc()
		return false
	}

	if err := s.transport.DispatchTask(context.Background(), workerID, task); err != nil {
		s.policy.RemoveTask(task.TaskID)
		metrics.AssignmentsTotal.WithLabelValues("dispatch_failed").Inc()
		s.logger.Error().Err(err).Str("task_id", task.TaskID.String()).Msg("failed to dispatch task")
		return false
	}

	metrics.AssignmentsTotal.WithLabelValues("assigned").Inc()

	s.mu.Lock()
	f := s.futures[task.TaskID]
	s.assignedAt[task.TaskID] = time.Now()
	s.mu.Unlock()
	if f != nil {
		f.SetRunning()
	}

	if s.broker != nil {
		s.broker.Publish(&events.Event{
			Type:     events.EventTaskAssigned,
			Metadata: map[string]string{"task_id": task.TaskID.String(), "worker_id": workerID.String()},
		})
	}
	return true
}

// retryParked attempts to place every currently parked task, keeping
// whichever ones still fail to place.
func (s *Scheduler) retryParked() {
	s.mu.Lock()
	pending := s.parked
	s.parked = nil
	s.mu.Unlock()

	var stillParked []types.Task
	for _, task := range pending {
		if !s.tryAssign(task) {
			stillParked = append(stillParked, task)
		}
	}

	if len(stillParked) > 0 {
		s.mu.Lock()
		s.parked = append(stillParked, s.parked...)
		s.mu.Unlock()
	}
}

// RequestCancel implements future.Canceller: it forwards an eviction
// request to taskID's worker. It never blocks for the acknowledgement
// itself - that happens via TaskComplete racing the future's own
// condition-variable wait. A rejected eviction is not an error: the task
// already started or finished, and its own completion report answers
// the cancel.
func (s *Scheduler) RequestCancel(taskID ids.TaskID) error {
	workerID := s.policy.GetWorkerByTaskID(taskID)
	if !workerID.IsValid() {
		return nil
	}
	if err := s.transport.EvictTask(context.Background(), workerID, taskID); err != nil {
		s.logger.Debug().Err(err).Str("task_id", taskID.String()).Msg("cancel eviction rejected, awaiting task completion")
	}
	return nil
}

// TaskComplete records a worker-reported terminal outcome for taskID,
// completing its future. It is idempotent: an unknown or already-removed
// taskID is a no-op, so a late or duplicate report from a racing evict
// can never double-complete a future.
func (s *Scheduler) TaskComplete(taskID ids.TaskID, state future.State, resultObjectID ids.ObjectID, profiling any) {
	s.mu.Lock()
	f, ok := s.futures[taskID]
	assignedAt, hadStart := s.assignedAt[taskID]
	if ok {
		delete(s.futures, taskID)
		delete(s.tasks, taskID)
		delete(s.assignedAt, taskID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.policy.RemoveTask(taskID)

	outcome := "success"
	switch state {
	case future.StateCancelled:
		f.SetCancelled()
		outcome = "cancelled"
		if s.broker != nil {
			s.broker.Publish(&events.Event{Type: events.EventTaskCancelled, Metadata: map[string]string{"task_id": taskID.String()}})
		}
	case future.StateFailed:
		_ = f.SetResultReady(resultObjectID, state, profiling)
		outcome = "failed"
		if s.broker != nil {
			s.broker.Publish(&events.Event{Type: events.EventTaskFailed, Metadata: map[string]string{"task_id": taskID.String()}})
		}
	default:
		_ = f.SetResultReady(resultObjectID, future.StateSuccess, profiling)
		if s.broker != nil {
			s.broker.Publish(&events.Event{Type: events.EventTaskCompleted, Metadata: map[string]string{"task_id": taskID.String()}})
		}
	}

	if hadStart {
		metrics.TaskCompletionDuration.WithLabelValues(outcome).Observe(time.Since(assignedAt).Seconds())
	}
}

// Balance implements reconciler.Dispatcher.
func (s *Scheduler) Balance() map[ids.WorkerID][]ids.TaskID {
	return s.policy.Balance()
}

// EvictAndReassign implements reconciler.Dispatcher: it removes taskID
// from fromWorker and re-runs assignment, dispatching it to whatever
// worker the policy now picks. It reports false, leaving the task in
// place, when the task is unknown, already moved, or cannot be placed
// anywhere - the next Balance() cycle will reconsider it.
func (s *Scheduler) EvictAndReassign(fromWorker ids.WorkerID, taskID ids.TaskID) bool {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	if w := s.policy.RemoveTask(taskID); !w.IsValid() || w != fromWorker {
		return false
	}

	newWorker := s.policy.AssignTask(task)
	if !newWorker.IsValid() {
		s.mu.Lock()
		s.parked = append(s.parked, task)
		s.mu.Unlock()
		return false
	}

	if err := s.transport.DispatchTask(context.Background(), newWorker, task); err != nil {
		s.policy.RemoveTask(taskID)
		s.mu.Lock()
		s.parked = append(s.parked, task)
		s.mu.Unlock()
		return false
	}

	_ = s.transport.EvictTask(context.Background(), fromWorker, taskID)

	if s.broker != nil {
		s.broker.Publish(&events.Event{
			Type: events.EventTaskMigrated,
			Metadata: map[string]string{
				"task_id": taskID.String(),
				"from":    fromWorker.String(),
				"to":      newWorker.String(),
			},
		})
	}
	return true
}

var _ future.Canceller = (*Scheduler)(nil)
