/*
Package allocator implements task allocation and load balancing across a
pool of workers.

The allocator tracks which workers are known to the cluster, what each one
is capable of running, and which tasks are currently queued on each of
them. Callers ask it to place a task, remove a task, register or
deregister a worker, and periodically ask it to compute a rebalance plan.
The allocator never talks to a worker directly - it only decides, and
returns its decisions to the caller for execution.

# Architecture

	┌──────────────────────────────────────────────────────────┐
	│                        Policy                             │
	│         (EvenLoadPolicy | ResourceAwarePolicy)            │
	└───────────────────────┬────────────────────────────────────┘
	                        │ delegates to
	                        ▼
	┌──────────────────────────────────────────────────────────┐
	│                       registry                            │
	│  workers:         worker_id -> WorkerHolder               │
	│  taskOwner:       task_id   -> worker_id                  │
	│  capabilityIndex: token     -> set of worker_id            │
	└───────────────────────┬────────────────────────────────────┘
	                        │
	            ┌───────────┴────────────┐
	            ▼                        ▼
	    AssignTask/RemoveTask      Balance()
	    (capability-indexed         (sorted-by-load scan,
	     least-loaded pick)          youngest-first eviction)

# Two Policies, One Registry

EvenLoadPolicy and ResourceAwarePolicy share the same registry and the
same assignment/balance algorithms. They differ only in what AddWorker
and AssignTask do with the resource value maps of workers and tasks:

  - EvenLoadPolicy ignores values entirely; every resource key is just a
    capability a worker offers.
  - ResourceAwarePolicy still treats every key as a binary capability (this
    allocator has no notion of a divisible quantity) but logs a warning
    each time a worker offers, or a task requests, a value other than the
    unmetered sentinel, since such values are accepted but never enforced.

# Task Assignment

AssignTask intersects the capability index for every token a task
requires, then picks the candidate with a free queue slot and the fewest
queued tasks, breaking ties by the lower worker ID:

	required = {"gpu"}
	capabilityIndex["gpu"] = {w1, w2, w3}
	w1: 4/4 queued (full)          -> skipped
	w2: 2/4 queued
	w3: 2/4 queued, id < w2.id     -> selected

A task requiring no capabilities is assignable to any worker with a free
slot.

# Rebalancing

Balance() is idle-triggered: it does nothing unless at least one worker
is currently idle, then repeatedly pops the most-loaded worker from a
load-sorted tree, scans its queue youngest-task-first, and moves the
first task it finds a capability-matching, below-average destination
for. Tasks it cannot place anywhere are memoized for the rest of the
call so later passes over the same worker don't retry them. See
balance.go for the full algorithm.

Balance() never mutates the live registry - it returns advice, and the
caller is expected to replay it as RemoveTask/AssignTask pairs.

# See Also

  - pkg/graph - dependency-aware task graph culling
  - pkg/future - client-visible task completion/cancellation
  - pkg/reconciler - the periodic loop that calls Balance()
*/
package allocator
