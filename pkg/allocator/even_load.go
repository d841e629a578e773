package allocator

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/rs/zerolog"

	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/types"
)

// EvenLoadPolicy is the pure capability matcher: it never looks at a
// resource's numeric value, treating every key in a task's or worker's
// resource map as a plain required/offered capability. Grounded on
// original_source's tagged_allocator.py, which carries no resource-value
// bookkeeping at all.
type EvenLoadPolicy struct {
	reg *registry
}

// NewEvenLoadPolicy constructs an EvenLoadPolicy with an empty registry.
func NewEvenLoadPolicy(logger zerolog.Logger) *EvenLoadPolicy {
	return &EvenLoadPolicy{reg: newRegistry(logger.With().Str("policy", "even_load").Logger())}
}

func (p *EvenLoadPolicy) AddWorker(workerID ids.WorkerID, resources map[types.Token]int64, queueSize uint32) bool {
	caps := set.New[types.Token](len(resources))
	for tok := range resources {
		caps.Insert(tok)
	}
	return p.reg.addWorker(workerID, caps, queueSize)
}

func (p *EvenLoadPolicy) RemoveWorker(workerID ids.WorkerID) []ids.TaskID { return p.reg.removeWorker(workerID) }

func (p *EvenLoadPolicy) GetWorkerIDs() *set.Set[ids.WorkerID] { return p.reg.getWorkerIDs() }

func (p *EvenLoadPolicy) GetWorkerByTaskID(taskID ids.TaskID) ids.WorkerID {
	return p.reg.getWorkerByTaskID(taskID)
}

func (p *EvenLoadPolicy) AssignTask(task types.Task) ids.WorkerID { return p.reg.assignTask(task) }

func (p *EvenLoadPolicy) RemoveTask(taskID ids.TaskID) ids.WorkerID { return p.reg.removeTask(taskID) }

func (p *EvenLoadPolicy) HasAvailableWorker(required []types.Token) bool {
	return p.reg.hasAvailableWorker(required)
}

func (p *EvenLoadPolicy) Balance() map[ids.WorkerID][]ids.TaskID { return p.reg.balance() }

func (p *EvenLoadPolicy) Statistics() map[ids.WorkerID]WorkerStats { return p.reg.statistics() }

var _ Policy = (*EvenLoadPolicy)(nil)
