package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry-level metrics
	WorkersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskmesh_workers_total",
			Help: "Total number of workers currently registered",
		},
	)

	TasksQueuedTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskmesh_tasks_queued_total",
			Help: "Total number of tasks currently queued across all workers",
		},
	)

	WorkerFreeSlotsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskmesh_worker_free_slots_total",
			Help: "Sum of free queue slots across all workers",
		},
	)

	// Assignment metrics
	AssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmesh_assignments_total",
			Help: "Total number of task assignment attempts by outcome",
		},
		[]string{"outcome"},
	)

	AssignmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskmesh_assignment_duration_seconds",
			Help:    "Time taken to select a worker for a task",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Rebalance metrics
	BalanceCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskmesh_balance_cycles_total",
			Help: "Total number of rebalance cycles completed",
		},
	)

	BalanceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskmesh_balance_duration_seconds",
			Help:    "Time taken to compute a rebalance plan",
			Buckets: prometheus.DefBuckets,
		},
	)

	TasksMigratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskmesh_tasks_migrated_total",
			Help: "Total number of tasks moved by the rebalancer",
		},
	)

	// Graph culling metrics
	GraphCullDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskmesh_graph_cull_duration_seconds",
			Help:    "Time taken to cull a task graph down to its reachable subgraph",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Future/client metrics
	TaskCompletionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskmesh_task_completion_duration_seconds",
			Help:    "Time from assignment to a terminal task state, by outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	CancelAckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskmesh_cancel_ack_duration_seconds",
			Help:    "Time spent blocked waiting for a cancellation acknowledgement",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(TasksQueuedTotal)
	prometheus.MustRegister(WorkerFreeSlotsTotal)
	prometheus.MustRegister(AssignmentsTotal)
	prometheus.MustRegister(AssignmentDuration)
	prometheus.MustRegister(BalanceCyclesTotal)
	prometheus.MustRegister(BalanceDuration)
	prometheus.MustRegister(TasksMigratedTotal)
	prometheus.MustRegister(GraphCullDuration)
	prometheus.MustRegister(TaskCompletionDuration)
	prometheus.MustRegister(CancelAckDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
