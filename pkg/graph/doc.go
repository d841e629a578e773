// Package graph culls a task DAG down to the subgraph a client's
// requested sink keys actually depend on. See culling.go.
package graph
