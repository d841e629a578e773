/*
Package events provides an in-memory event broker for the allocator's pub/sub
messaging.

The events package implements a lightweight, topic-agnostic event bus:
publishers broadcast to a buffered channel, a broadcast loop fans the event
out to every subscriber's own buffered channel, and full subscriber buffers
skip rather than block.

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  Publisher → Event Channel (buffer: 100)                  │
	│       ↓                                                    │
	│  Broadcast Loop                                            │
	│       ↓                                                    │
	│  Subscriber Channels (buffer: 50 each)                     │
	└────────────────────────────────────────────────────────┘

# Event Types

Worker lifecycle: worker.joined, worker.left, worker.down.

Task lifecycle: task.assigned, task.queued, task.evicted, task.migrated,
task.cancelled, task.completed, task.failed.

Rebalancer: balance.cycle_ran.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			switch event.Type {
			case events.EventTaskFailed:
				handleTaskFailed(event)
			}
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventWorkerJoined,
		Message: "worker registered",
		Metadata: map[string]string{"worker_id": workerID.String()},
	})

# Design Notes

Publish blocks only while the broker's 100-event buffer is full (until
the broadcast loop makes room or the broker stops), and delivery is
best-effort: a full subscriber buffer drops the event rather than stall
the broadcast loop. This package
carries no delivery guarantees; pkg/reconciler and pkg/metrics are expected
subscribers, not producers of record.

# See Also

  - pkg/reconciler for event-driven rebalance triggers
  - pkg/metrics for event-derived counters
*/
package events
