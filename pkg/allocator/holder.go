package allocator

import (
	"github.com/elliotchance/orderedmap"
	"github.com/hashicorp/go-set/v3"

	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/types"
)

// TaskHolder is the projection of a Task the allocator keeps once a task
// has been assigned: just enough to re-check capability coverage during
// rebalancing without holding the full wire descriptor alive.
type TaskHolder struct {
	TaskID   ids.TaskID
	Required *set.Set[types.Token]
}

// WorkerHolder tracks one worker's capability set and its ordered queue of
// assigned-but-not-yet-removed tasks. Queued preserves insertion order so
// the oldest task is always at Front() and the youngest at Back(), which
// the rebalancer relies on to walk a worker's queue youngest-first.
type WorkerHolder struct {
	WorkerID     ids.WorkerID
	Capabilities *set.Set[types.Token]
	QueueSize    uint32
	Queued       *orderedmap.OrderedMap[ids.TaskID, *TaskHolder]
}

func newWorkerHolder(workerID ids.WorkerID, caps *set.Set[types.Token], queueSize uint32) *WorkerHolder {
	return &WorkerHolder{
		WorkerID:     workerID,
		Capabilities: caps,
		QueueSize:    queueSize,
		Queued:       orderedmap.NewOrderedMap[ids.TaskID, *TaskHolder](),
	}
}

// NTasks is the number of tasks currently queued on this worker.
func (w *WorkerHolder) NTasks() int { return w.Queued.Len() }

// NFree is the number of free queue slots remaining on this worker.
func (w *WorkerHolder) NFree() int { return int(w.QueueSize) - w.NTasks() }

// WorkerStats is the observability projection returned by statistics().
type WorkerStats struct {
	Free         int
	Sent         int
	Capabilities *set.Set[types.Token]
}
