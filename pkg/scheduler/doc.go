/*
Package scheduler wires an allocator.Policy, a ControlTransport, an
objectstore.Connector and the futures bridge into a runnable process.

A production deployment's scheduler process would consume client
submissions and worker control messages over a wire transport; this repo
never implements that transport. Scheduler exists as a testable harness
over the same surface - SubmitTask, AddWorker/RemoveWorker, TaskComplete -
driving the allocator the same way a production event loop would.

# Architecture

	┌────────────────────────── SCHEDULER ───────────────────────────┐
	│                                                                  │
	│  SubmitTask(task) ──► policy.AssignTask ──► transport.Dispatch  │
	│       │                       │                                │
	│       │                 (no capacity)                          │
	│       │                       ▼                                │
	│       │                  parked queue ◄──── retried on tick    │
	│       │                                      or AddWorker       │
	│       ▼                                                         │
	│  future.Future (client handle)                                 │
	│       ▲                                                         │
	│       │                                                         │
	│  TaskComplete(taskID, state, objectID) ◄── worker report        │
	│                                                                  │
	│  Balance() / EvictAndReassign() ◄── driven by pkg/reconciler    │
	└──────────────────────────────────────────────────────────────────┘

# Dispatcher Interface

Scheduler implements reconciler.Dispatcher (Balance, EvictAndReassign) so
pkg/reconciler can drive rebalancing without importing pkg/scheduler;
neither package imports the other, and cmd/dispatchd builds the
reconciler around the scheduler.

# Cancellation

Scheduler implements future.Canceller. RequestCancel only forwards an
eviction message; it never blocks. The actual acknowledgement - whether
the task was evicted before it started, or completed before the
eviction could land - arrives later via TaskComplete, which races
naturally against a future's own Cancel() wait on its condition
variable, giving correct cancellation semantics without the scheduler
needing any cancellation-specific synchronization of its own.

# See Also

  - pkg/allocator for the policy this package wraps
  - pkg/future for the client-visible handle SubmitTask returns
  - pkg/reconciler for the rebalance loop driving Balance/EvictAndReassign
  - pkg/worker for the simulated agent implementing ControlTransport in tests
*/
package scheduler
