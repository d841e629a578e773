package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/taskmesh/pkg/allocator"
	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/types"
)

func TestCollector_CollectsWorkerAndQueueGauges(t *testing.T) {
	policy := allocator.NewEvenLoadPolicy(zerolog.Nop())
	w := ids.NewWorkerID()
	require.True(t, policy.AddWorker(w, nil, 4))
	require.Equal(t, w, policy.AssignTask(types.Task{TaskID: ids.NewTaskID()}))

	c := NewCollector(policy)
	c.collect()

	assert.Equal(t, float64(1), testutil.ToFloat64(WorkersTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(TasksQueuedTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(WorkerFreeSlotsTotal))
}

func TestCollector_StartStopDoesNotPanic(t *testing.T) {
	policy := allocator.NewEvenLoadPolicy(zerolog.Nop())
	c := NewCollector(policy)
	c.Start()
	time.Sleep(10 * time.Millisecond)
	c.Stop()
}
