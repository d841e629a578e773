package future

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/objectstore"
)

// State is the client-visible lifecycle of a submitted task.
type State int

const (
	StatePending State = iota
	StateRunning
	StateSuccess
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s State) terminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateCancelled
}

var (
	// ErrTaskAlreadyTerminal is returned by SetResultReady when the handle
	// has already reached a terminal state.
	ErrTaskAlreadyTerminal = errors.New("future: task is already in a terminal state")

	// ErrTimeout is returned by Result/Exception/Cancel when the supplied
	// timeout elapses before the task reaches a terminal state.
	ErrTimeout = errors.New("future: timed out waiting for task completion")
)

// Canceller sends the upstream cancel request for a task (or its whole
// task group, when the handle belongs to one) and blocks for nothing -
// the future itself blocks on the acknowledgement, delivered back via
// SetCancelled or SetResultReady racing it.
type Canceller interface {
	RequestCancel(taskID ids.TaskID) error
}

// DecodeSuccess turns a fetched success payload into the client-visible
// value. DecodeFailure turns a fetched failure payload into the
// client-visible error.
type DecodeSuccess func([]byte) (any, error)
type DecodeFailure func([]byte) error

// Future is a single submitted task's client-side handle. Every mutating
// method is safe under concurrent use: its own mutex and condition
// variable guard each Future independently, so one handle's state
// transitions never block or race against another's.
type Future struct {
	mu   sync.Mutex
	cond *sync.Cond

	taskID      ids.TaskID
	groupTaskID ids.TaskID
	hasGroup    bool
	delayed     bool

	connector     objectstore.Connector
	decodeSuccess DecodeSuccess
	decodeFailure DecodeFailure
	canceller     Canceller

	state           State
	resultObjectID  ids.ObjectID
	hasResultObject bool
	resultReceived  bool
	cancelRequested bool

	result      any
	taskErr     error
	profiling   any
	hasProfiling bool

	callbacks []func(*Future)
}

// Option configures an optional field on New.
type Option func(*Future)

// WithGroup marks the future as belonging to a task group (a graph
// submission): cancellation is requested against the group, and its
// result object is never deleted after fetch since sibling nodes may
// still need it.
func WithGroup(groupTaskID ids.TaskID) Option {
	return func(f *Future) {
		f.groupTaskID = groupTaskID
		f.hasGroup = true
	}
}

// New constructs a pending Future for taskID. delayed controls whether
// the result payload is fetched eagerly on completion (delayed=false) or
// only pulled on first demand (delayed=true).
func New(taskID ids.TaskID, delayed bool, connector objectstore.Connector, decodeSuccess DecodeSuccess, decodeFailure DecodeFailure, canceller Canceller, opts ...Option) *Future {
	f := &Future{
		taskID:        taskID,
		groupTaskID:   ids.InvalidTaskID,
		delayed:       delayed,
		connector:     connector,
		decodeSuccess: decodeSuccess,
		decodeFailure: decodeFailure,
		canceller:     canceller,
		state:         StatePending,
	}
	f.cond = sync.NewCond(&f.mu)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// TaskID returns the task this handle was created for.
func (f *Future) TaskID() ids.TaskID { return f.taskID }

// Done reports whether the handle has reached a terminal state.
func (f *Future) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.terminal()
}

// Cancelled reports whether the handle's terminal state is Cancelled.
func (f *Future) Cancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateCancelled
}

// ProfilingInfo returns the profiling record attached by SetResultReady,
// if one was ever attached.
func (f *Future) ProfilingInfo() (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiling, f.hasProfiling
}

// SetRunning transitions a Pending handle to Running. It is a no-op if
// the handle is already Running or terminal.
func (f *Future) SetRunning() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StatePending {
		f.state = StateRunning
		f.cond.Broadcast()
	}
}

// SetResultReady records that the task reached a terminal, non-cancelled
// state and its result lives at objectID. If the handle is not delayed,
// or already has a done-callback/waiter attached, the payload is fetched
// and decoded immediately; otherwise it is deferred until Result,
// Exception or AddDoneCallback is first called (pull-on-demand).
func (f *Future) SetResultReady(objectID ids.ObjectID, state State, profiling any) error {
	f.mu.Lock()

	if f.state.terminal() {
		f.mu.Unlock()
		return ErrTaskAlreadyTerminal
	}

	f.state = state
	f.resultObjectID = objectID
	f.hasResultObject = true
	if profiling != nil {
		f.profiling = profiling
		f.hasProfiling = true
	}

	var callbacks []func(*Future)
	if !f.delayed || f.hasResultListenersLocked() {
		callbacks = f.fetchResultLocked()
	}

	f.cond.Broadcast()
	f.mu.Unlock()

	f.runCallbacks(callbacks)
	return nil
}

// SetCancelled records the upstream cancellation acknowledgement. A
// handle that has already received a result silently keeps its result;
// callers are expected to only deliver this when the ack actually won
// the race against completion.
func (f *Future) SetCancelled() {
	f.mu.Lock()
	if f.state.terminal() {
		f.mu.Unlock()
		return
	}
	f.state = StateCancelled
	f.resultReceived = true
	f.cancelRequested = true
	f.cond.Broadcast()
	f.mu.Unlock()

	f.runCallbacks(f.snapshotCallbacks())
}

func (f *Future) hasResultListenersLocked() bool {
	return len(f.callbacks) > 0
}

// fetchResultLocked pulls and decodes the result object, if one is
// ready and hasn't already been observed. Must be called with f.mu held;
// returns the callbacks to run once the caller has released the lock.
func (f *Future) fetchResultLocked() []func(*Future) {
	if !f.hasResultObject || f.state == StateCancelled || f.resultReceived {
		return nil
	}

	payload, err := f.connector.Get(context.Background(), f.resultObjectID)
	if err != nil {
		return f.finishLocked(nil, err)
	}

	if !f.hasGroup {
		_ = f.connector.Delete(context.Background(), f.resultObjectID)
	}

	switch f.state {
	case StateSuccess:
		val, decodeErr := f.decodeSuccess(payload)
		if decodeErr != nil {
			return f.finishLocked(nil, decodeErr)
		}
		return f.finishLocked(val, nil)
	case StateFailed:
		return f.finishLocked(nil, f.decodeFailure(payload))
	default:
		return f.finishLocked(nil, fmt.Errorf("future: unexpected terminal state %s", f.state))
	}
}

// finishLocked stores the materialized result or error. Must be called
// with f.mu held, with the terminal state already set by the caller.
func (f *Future) finishLocked(result any, err error) []func(*Future) {
	f.resultReceived = true
	f.result = result
	f.taskErr = err
	return f.snapshotCallbacksLocked()
}

func (f *Future) snapshotCallbacksLocked() []func(*Future) {
	out := make([]func(*Future), len(f.callbacks))
	copy(out, f.callbacks)
	return out
}

func (f *Future) snapshotCallbacks() []func(*Future) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotCallbacksLocked()
}

func (f *Future) runCallbacks(callbacks []func(*Future)) {
	for _, cb := range callbacks {
		cb(f)
	}
}

// Result blocks until the task is terminal (bounded by timeout, or
// forever if timeout <= 0), fetching the result payload on first demand
// for delayed handles, and returns the decoded value or the task's own
// failure/cancellation error.
func (f *Future) Result(timeout time.Duration) (any, error) {
	f.mu.Lock()

	if err := f.waitUntilDoneLocked(timeout); err != nil {
		f.mu.Unlock()
		return nil, err
	}

	var callbacks []func(*Future)
	if f.delayed {
		callbacks = f.fetchResultLocked()
	}

	result, taskErr, state := f.result, f.taskErr, f.state
	f.mu.Unlock()

	f.runCallbacks(callbacks)

	if state == StateCancelled {
		return nil, context.Canceled
	}
	return result, taskErr
}

// Exception is Result without the value: it reports the task's own
// error (nil on success), distinct from the second return, a wait
// timeout.
func (f *Future) Exception(timeout time.Duration) (error, error) {
	_, err := f.Result(timeout)
	if errors.Is(err, ErrTimeout) {
		return nil, err
	}
	return err, nil
}

// Cancel requests cancellation and blocks for the upstream
// acknowledgement - either a cancel confirmation or the task's own
// completion, if that raced the request. It never locally marks the
// handle Cancelled before that acknowledgement arrives. Cancelling an
// already-terminal handle is a no-op reporting its final cancelled-ness.
func (f *Future) Cancel(timeout time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateCancelled {
		return true, nil
	}
	if f.state.terminal() {
		return false, nil
	}

	if !f.cancelRequested {
		f.cancelRequested = true
		// The lock is released while the request is sent, since a
		// canceller may deliver the acknowledgement (SetCancelled or
		// SetResultReady) before RequestCancel returns.
		f.mu.Unlock()
		err := f.canceller.RequestCancel(f.effectiveCancelTarget())
		f.mu.Lock()
		if err != nil {
			return false, err
		}
	}

	if err := f.waitUntilDoneLocked(timeout); err != nil {
		return false, err
	}

	return f.state == StateCancelled, nil
}

func (f *Future) effectiveCancelTarget() ids.TaskID {
	if f.hasGroup {
		return f.groupTaskID
	}
	return f.taskID
}

// AddDoneCallback registers fn to run once the handle reaches a
// terminal state, running it immediately if it already has. Adding a
// callback counts as a result listener, triggering the pull-on-demand
// fetch for a delayed handle whose result is already ready.
func (f *Future) AddDoneCallback(fn func(*Future)) {
	f.mu.Lock()

	alreadyDone := f.state.terminal() && f.resultReceived
	f.callbacks = append(f.callbacks, fn)

	var fetchCallbacks []func(*Future)
	if f.delayed {
		fetchCallbacks = f.fetchResultLocked()
	}
	f.mu.Unlock()

	f.runCallbacks(fetchCallbacks)
	if alreadyDone {
		fn(f)
	}
}

func (f *Future) waitUntilDoneLocked(timeout time.Duration) error {
	if f.state.terminal() {
		return nil
	}

	if timeout <= 0 {
		for !f.state.terminal() {
			f.cond.Wait()
		}
		return nil
	}

	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer timer.Stop()

	for !f.state.terminal() {
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		f.cond.Wait()
	}
	return nil
}
