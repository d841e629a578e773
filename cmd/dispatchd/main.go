// Command dispatchd is a minimal demo process wiring an allocator
// policy, the futures bridge, the reconciler, a simulated worker fleet,
// and Prometheus metrics into a runnable binary. No client wire protocol
// is implemented, so it submits a handful of demo tasks itself before
// settling into steady-state rebalancing.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskmesh/taskmesh/pkg/config"
	"github.com/taskmesh/taskmesh/pkg/events"
	"github.com/taskmesh/taskmesh/pkg/ids"
	"github.com/taskmesh/taskmesh/pkg/log"
	"github.com/taskmesh/taskmesh/pkg/metrics"
	"github.com/taskmesh/taskmesh/pkg/objectstore"
	"github.com/taskmesh/taskmesh/pkg/reconciler"
	"github.com/taskmesh/taskmesh/pkg/scheduler"
	"github.com/taskmesh/taskmesh/pkg/types"
	"github.com/taskmesh/taskmesh/pkg/worker"
)

// fleetTransport defers to a *worker.Fleet assigned after construction,
// breaking the construction cycle between scheduler.Scheduler (which
// needs a ControlTransport up front) and worker.Fleet (which needs the
// scheduler as its Registrar).
type fleetTransport struct {
	fleet *worker.Fleet
}

func (t *fleetTransport) DispatchTask(ctx context.Context, workerID ids.WorkerID, task types.Task) error {
	return t.fleet.DispatchTask(ctx, workerID, task)
}

func (t *fleetTransport) EvictTask(ctx context.Context, workerID ids.WorkerID, taskID ids.TaskID) error {
	return t.fleet.EvictTask(ctx, workerID, taskID)
}

func main() {
	configPath := flag.String("config", "dispatchd.yaml", "path to YAML configuration")
	metricsAddr := flag.String("metrics-addr", ":9090", "address for /metrics, /health, /ready, /live")
	demoTasks := flag.Int("demo-tasks", 8, "number of demo tasks to submit at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{Level: log.Level(cfg.Log.Level), JSONOutput: cfg.Log.JSON})
	metrics.SetVersion("dev")

	policy := cfg.NewPolicy(log.WithComponent("allocator"))
	connector := objectstore.NewMemoryConnector()
	broker := events.NewBroker()
	broker.Start()

	transport := &fleetTransport{}
	sched := scheduler.NewScheduler(policy, transport, connector, broker, decodeSuccess, decodeFailure)
	fleet := worker.NewFleet(sched, connector, time.Duration(cfg.TaskExecSeconds*float64(time.Second)))
	transport.fleet = fleet

	recon := reconciler.NewReconciler(sched, broker)
	collector := metrics.NewCollector(policy)

	for _, bw := range cfg.BootstrapWorkers {
		if _, err := fleet.Spawn(bw.Resources, bw.QueueSize); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to spawn bootstrap worker: %v\n", err)
			os.Exit(1)
		}
	}
	if len(cfg.BootstrapWorkers) == 0 {
		if _, err := fleet.Spawn(nil, cfg.DefaultQueueSize); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to spawn default worker: %v\n", err)
			os.Exit(1)
		}
	}

	sched.Start()
	recon.Start()
	collector.Start()
	metrics.RegisterComponent("allocator", true, "")
	metrics.RegisterComponent("reconciler", true, "")

	for i := 0; i < *demoTasks; i++ {
		sched.SubmitTask(types.Task{TaskID: ids.NewTaskID()}, false)
	}

	http.Handle("/metrics", metrics.Handler())
	http.Handle("/health", metrics.HealthHandler())
	http.Handle("/ready", metrics.ReadyHandler())
	http.Handle("/live", metrics.LivenessHandler())

	errCh := make(chan error, 1)
	go func() {
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			errCh <- err
		}
	}()

	fmt.Printf("dispatchd listening on %s (policy=%s, workers=%d)\n", *metricsAddr, cfg.Policy, max(1, len(cfg.BootstrapWorkers)))
	fmt.Println("Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}

	collector.Stop()
	recon.Stop()
	sched.Stop()
	broker.Stop()
	fmt.Println("Shutdown complete")
}

func decodeSuccess(payload []byte) (any, error) {
	return string(payload), nil
}

func decodeFailure(payload []byte) error {
	return fmt.Errorf("task failed: %s", payload)
}
