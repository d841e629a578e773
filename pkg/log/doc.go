/*
Package log provides structured logging for taskmesh using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Child Loggers

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	reconcilerLog := log.WithComponent("reconciler")
	workerLog := log.WithWorkerID(workerID.String())
	clientLog := log.WithClientID(string(task.ClientID))
	taskLog := log.WithTaskID(task.TaskID.String())

Each helper returns a derived zerolog.Logger carrying one extra structured
field; callers chain them as needed (e.g. a reconciler log further scoped
to a worker_id) rather than this package trying to anticipate every
combination.

# See Also

  - pkg/metrics - Prometheus metrics, the numeric counterpart to these logs
  - pkg/reconciler - the package that builds the richest chain of child loggers
*/
package log
