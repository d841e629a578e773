/*
Package config loads cmd/dispatchd's startup configuration from YAML.

A Config selects one of the two allocator policies, a default per-worker
queue size, an optional list of bootstrap workers to register before any
real worker joins, and logging options - a flat struct decoded straight
from a YAML document, one file describing one process's startup state.

# Example

	policy: resources
	default_queue_size: 8
	task_exec_seconds: 0.1
	bootstrap_workers:
	  - resources: {gpu: -1}
	    queue_size: 4
	log:
	  level: debug
	  json: false

# See Also

  - pkg/allocator for the Policy NewPolicy constructs
  - cmd/dispatchd for the binary that loads this configuration
*/
package config
