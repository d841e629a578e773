package metrics

import (
	"time"

	"github.com/taskmesh/taskmesh/pkg/allocator"
)

// Collector periodically snapshots a Policy's Statistics() into the
// package's Prometheus gauges, the same ticker-driven pattern the
// reconciler uses for its own loop.
type Collector struct {
	policy allocator.Policy
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector over policy.
func NewCollector(policy allocator.Policy) *Collector {
	return &Collector{
		policy: policy,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	stats := c.policy.Statistics()

	WorkersTotal.Set(float64(len(stats)))

	queued := 0
	free := 0
	for _, s := range stats {
		free += s.Free
		queued += s.Sent
	}
	TasksQueuedTotal.Set(float64(queued))
	WorkerFreeSlotsTotal.Set(float64(free))
}
