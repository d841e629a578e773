// Package allocator implements the task allocation and balancing
// subsystem: the worker registry, capability index, the two allocation
// policies (even-load and resource-aware), and the rebalancer.
package allocator

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/types"
)

// Policy is the operation set the dispatcher is allowed to use against an
// allocator implementation. Both EvenLoadPolicy and ResourceAwarePolicy
// satisfy it; the dispatcher is generic over whichever one a cluster was
// started with (see pkg/config) and must never reach past this interface
// to mutate a WorkerHolder directly.
type Policy interface {
	// AddWorker registers a new worker with the given resource/capability
	// map and queue depth. Returns false without mutation if the worker
	// ID is already known.
	AddWorker(workerID ids.WorkerID, resources map[types.Token]int64, queueSize uint32) bool

	// RemoveWorker deregisters a worker and returns its queued task IDs in
	// arbitrary order, for the caller to reassign or fail. Unknown worker
	// IDs are a no-op returning an empty slice.
	RemoveWorker(workerID ids.WorkerID) []ids.TaskID

	// GetWorkerIDs returns the set of currently known worker IDs.
	GetWorkerIDs() *set.Set[ids.WorkerID]

	// GetWorkerByTaskID returns the worker a task is assigned to, or
	// ids.InvalidWorkerID if the task is unknown.
	GetWorkerByTaskID(taskID ids.TaskID) ids.WorkerID

	// AssignTask selects a capability-satisfying worker with a free queue
	// slot and the least load, appends the task to its queue, and returns
	// its ID. Returns ids.InvalidWorkerID, unchanged state, when no worker
	// qualifies.
	AssignTask(task types.Task) ids.WorkerID

	// RemoveTask removes a task from its worker's queue and the
	// assignment map, returning the previous worker or the invalid
	// sentinel if the task was unknown.
	RemoveTask(taskID ids.TaskID) ids.WorkerID

	// HasAvailableWorker reports whether at least one worker satisfying
	// required has a free queue slot.
	HasAvailableWorker(required []types.Token) bool

	// Balance computes rebalance advice: task IDs to evict from each
	// high-load worker and hand back to the dispatcher for reassignment.
	// See balance.go for the algorithm.
	Balance() map[ids.WorkerID][]ids.TaskID

	// Statistics returns the observability projection for every worker.
	Statistics() map[ids.WorkerID]WorkerStats
}
