package allocator

import (
	"github.com/google/btree"
	"github.com/hashicorp/go-set/v3"

	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/types"
)

// loadItem is a btree.Item keyed by (n_tasks, worker_id), backed by
// google/btree so both pop-max (DeleteMax) and an ascending range scan
// (Ascend) are available without hand-rolling a balanced tree.
type loadItem struct {
	nTasks   int
	workerID ids.WorkerID
}

func (a *loadItem) Less(than btree.Item) bool {
	b := than.(*loadItem)
	if a.nTasks != b.nTasks {
		return a.nTasks < b.nTasks
	}
	return a.workerID.Less(b.workerID)
}

// workingWorker is a balance()-local snapshot of one unbalanced worker's
// queue, oldest-to-youngest, mutated only within a single balance() call
// so the live registry is never touched until the dispatcher replays the
// returned advice.
type workingWorker struct {
	workerID     ids.WorkerID
	capabilities *set.Set[types.Token]
	tasks        []*TaskHolder
}

func isBalanced(nTasks int, avg float64) bool {
	d := float64(nTasks) - avg
	if d < 0 {
		d = -d
	}
	return d < 1
}

// balance implements an idle-triggered, average-seeking, youngest-first
// rebalance: it drains the busiest workers' most recently queued tasks
// toward idle capable workers until every worker's load is within one
// task of the cluster average. It never mutates the live registry; it
// returns the set of (worker, task) evictions the dispatcher should
// replay via RemoveTask/AssignTask.
func (r *registry) balance() map[ids.WorkerID][]ids.TaskID {
	r.mu.Lock()
	defer r.mu.Unlock()

	advice := make(map[ids.WorkerID][]ids.TaskID)

	if len(r.workers) == 0 {
		return advice
	}

	hasIdle := false
	totalTasks := 0
	for _, w := range r.workers {
		if w.NTasks() == 0 {
			hasIdle = true
		}
		totalTasks += w.NTasks()
	}
	if !hasIdle {
		return advice
	}

	avg := float64(totalTasks) / float64(len(r.workers))

	working := make(map[ids.WorkerID]*workingWorker, len(r.workers))
	tree := btree.New(32)

	for id, w := range r.workers {
		if isBalanced(w.NTasks(), avg) {
			continue
		}
		ww := &workingWorker{workerID: id, capabilities: w.Capabilities, tasks: make([]*TaskHolder, 0, w.NTasks())}
		for el := w.Queued.Front(); el != nil; el = el.Next() {
			ww.tasks = append(ww.tasks, el.Value)
		}
		working[id] = ww
		tree.ReplaceOrInsert(&loadItem{nTasks: len(ww.tasks), workerID: id})
	}

	unbalanceable := set.New[ids.TaskID](0)

	for tree.Len() >= 2 {
		item := tree.DeleteMax().(*loadItem)
		h := working[item.workerID]

		if isBalanced(len(h.tasks), avg) {
			break
		}

		var moved *TaskHolder
		receiverID := ids.InvalidWorkerID

		for i := len(h.tasks) - 1; i >= 0; i-- {
			task := h.tasks[i]
			if unbalanceable.Contains(task.TaskID) {
				continue
			}

			found := ids.InvalidWorkerID
			tree.Ascend(func(it btree.Item) bool {
				cand := it.(*loadItem)
				if float64(cand.nTasks) >= avg {
					return false
				}
				g := working[cand.workerID]
				if task.Required.Subset(g.capabilities) {
					found = cand.workerID
					return false
				}
				return true
			})

			if found.IsValid() {
				receiverID = found
				moved = task
				h.tasks = append(h.tasks[:i], h.tasks[i+1:]...)
				break
			}

			unbalanceable.Insert(task.TaskID)
		}

		if moved == nil {
			continue
		}

		g := working[receiverID]
		tree.Delete(&loadItem{nTasks: len(g.tasks), workerID: receiverID})
		g.tasks = append(g.tasks, moved)

		advice[item.workerID] = append(advice[item.workerID], moved.TaskID)

		if !isBalanced(len(h.tasks), avg) {
			tree.ReplaceOrInsert(&loadItem{nTasks: len(h.tasks), workerID: item.workerID})
		}
		if !isBalanced(len(g.tasks), avg) {
			tree.ReplaceOrInsert(&loadItem{nTasks: len(g.tasks), workerID: receiverID})
		}
	}

	return advice
}
