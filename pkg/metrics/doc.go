/*
Package metrics provides Prometheus metrics collection and exposition for the
task allocator.

Metrics are registered at package init and exposed via an HTTP handler for
scraping.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Registry: workers, queued tasks, free slots │          │
	│  │  Assignment: attempts, duration by outcome   │          │
	│  │  Rebalance: cycles, duration, migrations     │          │
	│  │  Graph: culling duration                     │          │
	│  │  Future: completion duration, cancel ack     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint               │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Collector

Collector periodically snapshots a Policy's Statistics() into the registry
gauges (WorkersTotal, TasksQueuedTotal, WorkerFreeSlotsTotal) on a ticker, the
same pattern the reconciler's loop uses.

# Timer Helper

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.AssignmentDuration)

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDurationVec(metrics.TaskCompletionDuration, "success")

# Health and Readiness

See health.go for /health, /ready, and /live handlers. Readiness depends on
the "allocator" and "reconciler" components being registered and healthy.

# See Also

  - pkg/log for structured logging
  - pkg/reconciler for the rebalance loop this package instruments
*/
package metrics
