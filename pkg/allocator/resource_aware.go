package allocator

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/rs/zerolog"

	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/types"
)

// ResourceAwarePolicy is the resource-aware matcher: it still treats every
// resource token as a binary required/offered capability (the allocator
// has no notion of a divisible quantity), but it validates the values a
// worker is registered with, and the values a task requests, and logs a
// warning for every one that isn't types.UnmeteredValue, since such a
// value is accepted but not actually enforced anywhere. Grounded on original_source's
// resource_allocate_policy.py, whose add_worker does the same check.
type ResourceAwarePolicy struct {
	reg *registry
}

// NewResourceAwarePolicy constructs a ResourceAwarePolicy with an empty registry.
func NewResourceAwarePolicy(logger zerolog.Logger) *ResourceAwarePolicy {
	return &ResourceAwarePolicy{reg: newRegistry(logger.With().Str("policy", "resource_aware").Logger())}
}

func (p *ResourceAwarePolicy) AddWorker(workerID ids.WorkerID, resources map[types.Token]int64, queueSize uint32) bool {
	caps := set.New[types.Token](len(resources))
	for tok, value := range resources {
		if value != types.UnmeteredValue {
			p.reg.logger.Warn().
				Str("worker_id", workerID.String()).
				Str("resource", string(tok)).
				Int64("value", value).
				Msg("resource value is not a metered quantity the allocator understands; treating as a required capability only")
		}
		caps.Insert(tok)
	}
	return p.reg.addWorker(workerID, caps, queueSize)
}

func (p *ResourceAwarePolicy) RemoveWorker(workerID ids.WorkerID) []ids.TaskID {
	return p.reg.removeWorker(workerID)
}

func (p *ResourceAwarePolicy) GetWorkerIDs() *set.Set[ids.WorkerID] { return p.reg.getWorkerIDs() }

func (p *ResourceAwarePolicy) GetWorkerByTaskID(taskID ids.TaskID) ids.WorkerID {
	return p.reg.getWorkerByTaskID(taskID)
}

func (p *ResourceAwarePolicy) AssignTask(task types.Task) ids.WorkerID {
	for tok, value := range task.Resources {
		if value != types.UnmeteredValue {
			p.reg.logger.Warn().
				Str("task_id", task.TaskID.String()).
				Str("resource", string(tok)).
				Int64("value", value).
				Msg("resource value is not a metered quantity the allocator understands; treating as a required capability only")
		}
	}
	return p.reg.assignTask(task)
}

func (p *ResourceAwarePolicy) RemoveTask(taskID ids.TaskID) ids.WorkerID {
	return p.reg.removeTask(taskID)
}

func (p *ResourceAwarePolicy) HasAvailableWorker(required []types.Token) bool {
	return p.reg.hasAvailableWorker(required)
}

func (p *ResourceAwarePolicy) Balance() map[ids.WorkerID][]ids.TaskID { return p.reg.balance() }

func (p *ResourceAwarePolicy) Statistics() map[ids.WorkerID]WorkerStats { return p.reg.statistics() }

var _ Policy = (*ResourceAwarePolicy)(nil)
