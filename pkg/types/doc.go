// Package types defines the task descriptor consumed by the allocator
// packages. The wire-level task message (client_id, resources, object
// IDs) is produced elsewhere; this package only holds the projection the
// allocator actually reads.
package types
