package reconciler

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskmesh/taskmesh/pkg/events"
	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/log"
	"github.com/taskmesh/taskmesh/pkg/metrics"
)

// Dispatcher is the subset of scheduler behavior the reconciler drives: it
// asks for rebalance advice and replays it as eviction-and-reassignment
// cycles. The reconciler never touches a Policy or a WorkerHolder
// directly - only the scheduler that owns them, which keeps the
// rebalance loop reusable against anything that can compute and apply
// advice.
type Dispatcher interface {
	// Balance computes the current rebalance advice (see
	// allocator.Policy.Balance).
	Balance() map[ids.WorkerID][]ids.TaskID

	// EvictAndReassign removes taskID from fromWorker and reassigns it
	// through the allocator's normal assignment path. It returns false if
	// the task could not be placed anywhere (the caller should not retry
	// in the same cycle; the next Balance() call will pick it up again if
	// it is still unbalanced).
	EvictAndReassign(fromWorker ids.WorkerID, taskID ids.TaskID) bool
}

// Reconciler periodically asks a Dispatcher to rebalance load across
// workers, and also fires a rebalance immediately in response to worker
// join/leave events rather than waiting out the remainder of the
// periodic interval.
type Reconciler struct {
	dispatcher Dispatcher
	broker     *events.Broker
	logger     zerolog.Logger
	interval   time.Duration
	mu         sync.Mutex
	stopCh     chan struct{}
}

// NewReconciler creates a new reconciler driving dispatcher. broker may be
// nil, in which case the reconciler only ever fires on its periodic timer.
func NewReconciler(dispatcher Dispatcher, broker *events.Broker) *Reconciler {
	return &Reconciler{
		dispatcher: dispatcher,
		broker:     broker,
		logger:     log.WithComponent("reconciler"),
		interval:   10 * time.Second,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the reconciliation loop.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var sub events.Subscriber
	if r.broker != nil {
		sub = r.broker.Subscribe()
		defer r.broker.Unsubscribe(sub)
	}

	r.logger.Info().Msg("reconciler started")

	for {
		select {
		case <-ticker.C:
			r.reconcile()
		case event, ok := <-sub:
			if !ok {
				sub = nil
				continue
			}
			if event.Type == events.EventWorkerJoined || event.Type == events.EventWorkerLeft {
				r.logger.Debug().Str("event", string(event.Type)).Msg("rebalance triggered by worker membership change")
				r.reconcile()
			}
		case <-r.stopCh:
			r.logger.Info().Msg("reconciler stopped")
			return
		}
	}
}

// reconcile performs one rebalance cycle: it asks the dispatcher for
// advice and replays every eviction it names.
func (r *Reconciler) reconcile() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.BalanceDuration)
		metrics.BalanceCyclesTotal.Inc()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	advice := r.dispatcher.Balance()
	if len(advice) == 0 {
		return
	}

	moved := 0
	for fromWorker, taskIDs := range advice {
		for _, taskID := range taskIDs {
			if !r.dispatcher.EvictAndReassign(fromWorker, taskID) {
				r.logger.Warn().
					Str("worker_id", fromWorker.String()).
					Str("task_id", taskID.String()).
					Msg("rebalance advice could not be replayed, task left in place")
				continue
			}
			moved++
			r.logger.Debug().
				Str("worker_id", fromWorker.String()).
				Str("task_id", taskID.String()).
				Msg("task migrated by rebalancer")
		}
	}

	if moved > 0 {
		metrics.TasksMigratedTotal.Add(float64(moved))
		if r.broker != nil {
			r.broker.Publish(&events.Event{
				Type:    events.EventBalanceCycleRan,
				Message: "rebalance cycle migrated tasks",
				Metadata: map[string]string{
					"tasks_migrated": strconv.Itoa(moved),
				},
			})
		}
	}
}
