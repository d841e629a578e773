/*
Package reconciler drives periodic and event-triggered rebalancing of
tasks across workers.

The reconciler asks a Dispatcher for rebalance advice and replays every
eviction it names by removing a task from its overloaded worker and
reassigning it through the allocator's normal placement path. It never
touches an allocator.Policy or a WorkerHolder directly - the Dispatcher
interface is the only thing it depends on, so it can drive any scheduler
implementation that can compute advice and replay it.

# Architecture

	┌────────────────────────────────────────────────────────────┐
	│                  Reconciliation Loop                       │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	    ┌────────────┴────────────┐
	    │                         │
	    ▼                         ▼
	Periodic ticker         worker.joined / worker.left
	(every 10s)             events from the broker
	    │                         │
	    └────────────┬────────────┘
	                 ▼
	         dispatcher.Balance()
	                 │
	                 ▼
	     dispatcher.EvictAndReassign(...)
	         for every evicted task

# Triggers

A rebalance fires on three triggers: after a worker joins, after a
worker leaves, and on a periodic timer. The periodic timer is the
reconciler's own ticker; join/leave are delivered as
events.EventWorkerJoined and events.EventWorkerLeft over an
events.Broker subscription, so a newly idle or newly departed worker
gets load corrected immediately instead of waiting out the ticker.

# Usage

	broker := events.NewBroker()
	broker.Start()

	r := reconciler.NewReconciler(dispatcher, broker)
	r.Start()
	defer r.Stop()

# See Also

  - pkg/allocator for the Balance algorithm this package drives
  - pkg/events for the broker used for join/leave triggers
  - pkg/metrics for BalanceCyclesTotal, BalanceDuration, TasksMigratedTotal
*/
package reconciler
