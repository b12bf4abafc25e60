package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/2beens/liftsync/internal/diff"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// reconciler merges a successful creation/profile result into the current state.
type reconciler interface {
	Reconcile(res Result)
}

// Dispatcher fires one remote call per change without waiting for it.
// Failures are logged and dropped: no retry, nothing reaches the caller.
type Dispatcher struct {
	ctx        context.Context
	userID     string
	executor   *Executor
	reconciler reconciler
	metrics    *metrics.Manager

	inFlight sync.WaitGroup
}

func NewDispatcher(
	ctx context.Context,
	userID string,
	executor *Executor,
	reconciler reconciler,
	metricsManager *metrics.Manager,
) *Dispatcher {
	return &Dispatcher{
		ctx:        ctx,
		userID:     userID,
		executor:   executor,
		reconciler: reconciler,
		metrics:    metricsManager,
	}
}

// OnTransition diffs the two versions and dispatches every resulting change.
// It matches state.TransitionHook and is registered on the container.
func (d *Dispatcher) OnTransition(prev, next model.AppState) {
	for _, change := range diff.Diff(prev, next) {
		d.Dispatch(change)
	}
}

// Dispatch runs the remote call for change in its own goroutine and returns immediately.
func (d *Dispatcher) Dispatch(change diff.Change) {
	labels := prometheus.Labels{
		"collection": change.Collection.String(),
		"kind":       change.Kind.String(),
	}

	d.inFlight.Add(1)
	d.metrics.GaugeSyncInFlight.Inc()
	go func() {
		defer func() {
			d.metrics.GaugeSyncInFlight.Dec()
			d.inFlight.Done()
		}()

		start := time.Now()
		res, err := d.executor.Execute(d.ctx, d.userID, change)
		d.metrics.HistogramSyncDuration.
			With(prometheus.Labels{"collection": change.Collection.String()}).
			Observe(time.Since(start).Seconds())

		if errors.Is(err, ErrNotSyncable) {
			log.Debugf("dispatch: %s skipped: %s", change, err)
			d.metrics.CounterSyncSkipped.With(labels).Inc()
			return
		}
		d.metrics.CounterSyncDispatched.With(labels).Inc()
		if err != nil {
			// local state stays as is; the remote copy is stale until the next hydration
			log.Errorf("dispatch: %s failed: %s", change, err)
			d.metrics.CounterSyncFailed.With(labels).Inc()
			return
		}

		log.Tracef("dispatch: %s done", change)
		if res.NeedsMerge() {
			d.reconciler.Reconcile(res)
		}
	}()
}

// Wait blocks until all in-flight calls have finished. Callers of Dispatch
// never use it; it exists for shutdown and tests.
func (d *Dispatcher) Wait() {
	d.inFlight.Wait()
}
