package allocator

import (
	"sync"

	"github.com/hashicorp/go-set/v3"
	"github.com/rs/zerolog"

	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/types"
)

// registry holds the worker-registry, task-assignment map and capability
// index shared by every Policy implementation. Every state invariant -
// one owner per assigned task, queue length never exceeding a worker's
// queue size, capability index staying in sync with live workers - is
// enforced here; EvenLoadPolicy and ResourceAwarePolicy differ only in
// how they validate/log the resource values passed to AddWorker.
type registry struct {
	mu sync.Mutex

	logger zerolog.Logger

	workers         map[ids.WorkerID]*WorkerHolder
	taskOwner       map[ids.TaskID]ids.WorkerID
	capabilityIndex map[types.Token]*set.Set[ids.WorkerID]
}

func newRegistry(logger zerolog.Logger) *registry {
	return &registry{
		logger:          logger,
		workers:         make(map[ids.WorkerID]*WorkerHolder),
		taskOwner:       make(map[ids.TaskID]ids.WorkerID),
		capabilityIndex: make(map[types.Token]*set.Set[ids.WorkerID]),
	}
}

// addWorker inserts worker, taking the registry lock itself. Caller
// validates and logs resource-value semantics before calling this.
func (r *registry) addWorker(workerID ids.WorkerID, caps *set.Set[types.Token], queueSize uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workers[workerID]; exists {
		return false
	}

	holder := newWorkerHolder(workerID, caps, queueSize)
	r.workers[workerID] = holder

	caps.ForEach(func(tok types.Token) bool {
		bucket, ok := r.capabilityIndex[tok]
		if !ok {
			bucket = set.New[ids.WorkerID](1)
			r.capabilityIndex[tok] = bucket
		}
		bucket.Insert(workerID)
		return true
	})

	return true
}

func (r *registry) removeWorker(workerID ids.WorkerID) []ids.TaskID {
	r.mu.Lock()
	defer r.mu.Unlock()

	holder, ok := r.workers[workerID]
	if !ok {
		return nil
	}
	delete(r.workers, workerID)

	holder.Capabilities.ForEach(func(tok types.Token) bool {
		bucket, ok := r.capabilityIndex[tok]
		if !ok {
			return true
		}
		bucket.Remove(workerID)
		if bucket.Empty() {
			delete(r.capabilityIndex, tok)
		}
		return true
	})

	taskIDs := make([]ids.TaskID, 0, holder.NTasks())
	for el := holder.Queued.Front(); el != nil; el = el.Next() {
		taskIDs = append(taskIDs, el.Key)
		delete(r.taskOwner, el.Key)
	}

	return taskIDs
}

func (r *registry) getWorkerIDs() *set.Set[ids.WorkerID] {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := set.New[ids.WorkerID](len(r.workers))
	for id := range r.workers {
		out.Insert(id)
	}
	return out
}

func (r *registry) getWorkerByTaskID(taskID ids.TaskID) ids.WorkerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if workerID, ok := r.taskOwner[taskID]; ok {
		return workerID
	}
	return ids.InvalidWorkerID
}

// candidateWorkers returns the workers satisfying required, i.e. the
// intersection of capabilityIndex[t] for every t in required, or every
// known worker when required is empty. The second return is false when
// any requested token is unknown cluster-wide, so callers can short-circuit
// a task that no worker could ever run instead of leaving it parked forever.
func (r *registry) candidateWorkers(required []types.Token) ([]*WorkerHolder, bool) {
	if len(required) == 0 {
		out := make([]*WorkerHolder, 0, len(r.workers))
		for _, w := range r.workers {
			out = append(out, w)
		}
		return out, true
	}

	var matching *set.Set[ids.WorkerID]
	for _, tok := range required {
		bucket, ok := r.capabilityIndex[tok]
		if !ok {
			return nil, false
		}
		if matching == nil {
			matching = bucket.Copy()
		} else {
			matching = matching.Intersect(bucket)
		}
	}

	out := make([]*WorkerHolder, 0, matching.Size())
	matching.ForEach(func(id ids.WorkerID) bool {
		out = append(out, r.workers[id])
		return true
	})
	return out, true
}

// pickLeastLoaded selects the free-slotted candidate with the fewest
// queued tasks, breaking ties by lowest WorkerID for a deterministic
// choice among equally loaded workers.
func pickLeastLoaded(candidates []*WorkerHolder) *WorkerHolder {
	var best *WorkerHolder
	for _, w := range candidates {
		if w.NFree() <= 0 {
			continue
		}
		switch {
		case best == nil:
			best = w
		case w.NTasks() < best.NTasks():
			best = w
		case w.NTasks() == best.NTasks() && w.WorkerID.Less(best.WorkerID):
			best = w
		}
	}
	return best
}

func (r *registry) assignTask(task types.Task) ids.WorkerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	required := task.RequiredCapabilities()

	candidates, known := r.candidateWorkers(required)
	if !known {
		return ids.InvalidWorkerID
	}

	winner := pickLeastLoaded(candidates)
	if winner == nil {
		return ids.InvalidWorkerID
	}

	requiredSet := set.From(required)
	winner.Queued.Set(task.TaskID, &TaskHolder{TaskID: task.TaskID, Required: requiredSet})
	r.taskOwner[task.TaskID] = winner.WorkerID

	return winner.WorkerID
}

func (r *registry) removeTask(taskID ids.TaskID) ids.WorkerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	workerID, ok := r.taskOwner[taskID]
	if !ok {
		return ids.InvalidWorkerID
	}
	delete(r.taskOwner, taskID)

	if holder, ok := r.workers[workerID]; ok {
		holder.Queued.Delete(taskID)
	}

	return workerID
}

func (r *registry) hasAvailableWorker(required []types.Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates, known := r.candidateWorkers(required)
	if !known {
		return false
	}
	for _, w := range candidates {
		if w.NFree() > 0 {
			return true
		}
	}
	return false
}

func (r *registry) statistics() map[ids.WorkerID]WorkerStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[ids.WorkerID]WorkerStats, len(r.workers))
	for id, w := range r.workers {
		out[id] = WorkerStats{
			Free:         w.NFree(),
			Sent:         w.NTasks(),
			Capabilities: w.Capabilities.Copy(),
		}
	}
	return out
}
