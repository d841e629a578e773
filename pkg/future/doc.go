// Package future implements the client-visible task handle: a
// Pending/Running -> Success/Failed/Cancelled state machine bridging the
// allocator's single-threaded world to client goroutines, with
// pull-on-demand result fetching and acknowledged cancellation.
package future
