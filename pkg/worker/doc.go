/*
Package worker simulates worker processes so the rest of this module can
be exercised without a real network transport or execution sandbox.

A Fleet is a scheduler.ControlTransport: DispatchTask and EvictTask route
to the agent for the named worker. Each agent runs two loops - a
heartbeat ticker and a task-ack loop - except the task-ack loop here
"executes" a task by sleeping for a fixed duration before writing a
placeholder result to the object store and reporting completion, rather
than driving a container runtime.

# Architecture

	┌─────────────────────────── FLEET ───────────────────────────┐
	│                                                               │
	│  Spawn() ──► registrar.AddWorker ──► agent.start()           │
	│                                           │                   │
	│  DispatchTask(workerID, task) ──────► agent.dispatch()       │
	│                                           │                   │
	│                                    heartbeat ticker (5s)      │
	│                                           │                   │
	│                                    execute(): sleep, then      │
	│                                    connector.Set + TaskComplete│
	│                                                               │
	│  EvictTask(workerID, taskID) ───────► agent.evict()          │
	│                                    cancels in-flight execute  │
	│                                                               │
	│  Retire() ──► agent.stop() ──► registrar.RemoveWorker        │
	└───────────────────────────────────────────────────────────────┘

# Eviction Races

evict() and a task's own completion race exactly the way a real worker
and scheduler would: whichever side removes the agent's running-task
entry first owns reporting the terminal state through Registrar.TaskComplete.
The loser's report is skipped, not duplicated, since a future can only
ever make one terminal transition.

# Usage

	// transport forwards DispatchTask/EvictTask to fleet once it exists,
	// as cmd/dispatchd's fleetTransport does.
	sched := scheduler.NewScheduler(policy, transport, connector, broker, decodeSuccess, decodeFailure)
	fleet := worker.NewFleet(sched, connector, 50*time.Millisecond)
	transport.fleet = fleet

	workerID, err := fleet.Spawn(map[types.Token]int64{"gpu": types.UnmeteredValue}, 4)

# See Also

  - pkg/scheduler for the ControlTransport interface this package implements
  - pkg/future for the State vocabulary TaskComplete reports
  - pkg/objectstore for the Connector results are written through
*/
package worker
