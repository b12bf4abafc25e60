package outbox

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/2beens/liftsync/internal/diff"
	"github.com/2beens/liftsync/internal/dispatch"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/remote"
	"github.com/2beens/liftsync/internal/telemetry/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUnknownKey = errors.New("outbox: unknown operation key")
	ErrClosed     = errors.New("outbox: closed")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

const (
	// completed operations kept around for Await
	defaultRetainCompleted = 1024
	// server identities kept for resolving later operations
	defaultRetainCreated = 1024
)

type merger interface {
	MergeByKey(res dispatch.Result) bool
}

type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxRetries after the first attempt; 0 means no retries.
	MaxRetries uint64
}

func DefaultConfig() Config {
	return Config{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		MaxRetries:      8,
	}
}

type operation struct {
	key    string
	change diff.Change
	status Status
	err    error
	done   chan struct{}
}

// Outbox queues changes under idempotency keys and sends them, one at a time
// and in order, through a single drainer.
// Server identities learned from creations are applied to later operations on
// the same element, so an update or delete enqueued before the creation
// finished still reaches the right remote row.
type Outbox struct {
	userID   string
	executor *dispatch.Executor
	merger   merger
	metrics  *metrics.Manager
	config   Config

	mutex     sync.Mutex
	queue     []*operation
	ops       map[string]*operation
	completed []string
	// created results by element local key, oldest first in createdOrder
	created      map[string]dispatch.Result
	createdOrder []string
	closed       bool
	wakeup       chan struct{}
}

func New(
	userID string,
	executor *dispatch.Executor,
	merger merger,
	metricsManager *metrics.Manager,
	config Config,
) *Outbox {
	return &Outbox{
		userID:   userID,
		executor: executor,
		merger:   merger,
		metrics:  metricsManager,
		config:   config,
		ops:      make(map[string]*operation),
		created:  make(map[string]dispatch.Result),
		wakeup:   make(chan struct{}, 1),
	}
}

// Enqueue adds change to the tail of the queue and returns its idempotency key.
func (o *Outbox) Enqueue(change diff.Change) string {
	op := &operation{
		key:    uuid.NewString(),
		change: change,
		status: StatusPending,
		done:   make(chan struct{}),
	}

	o.mutex.Lock()
	o.ops[op.key] = op
	if o.closed {
		o.mutex.Unlock()
		log.Warnf("outbox: %s dropped, outbox closed", change)
		o.complete(op, ErrClosed)
		return op.key
	}
	o.queue = append(o.queue, op)
	pending := o.pendingLocked()
	o.mutex.Unlock()

	o.metrics.GaugeOutboxPending.Set(float64(pending))
	log.Tracef("outbox: enqueued %s as %s", change, op.key)

	select {
	case o.wakeup <- struct{}{}:
	default:
	}
	return op.key
}

// Pending returns the number of operations not yet completed.
func (o *Outbox) Pending() int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.pendingLocked()
}

func (o *Outbox) pendingLocked() int {
	pending := 0
	for _, op := range o.ops {
		if op.status == StatusPending {
			pending++
		}
	}
	return pending
}

// Await blocks until the operation with key completes or ctx is done.
// A failed operation returns StatusFailed with the last remote error.
func (o *Outbox) Await(ctx context.Context, key string) (Status, error) {
	o.mutex.Lock()
	op, ok := o.ops[key]
	o.mutex.Unlock()
	if !ok {
		return "", ErrUnknownKey
	}

	select {
	case <-op.done:
	case <-ctx.Done():
		return StatusPending, ctx.Err()
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()
	return op.status, op.err
}

// Run drains the queue until ctx is done. Only one Run may be active.
// Operations still queued when Run returns, and any enqueued later,
// fail with ErrClosed.
func (o *Outbox) Run(ctx context.Context) {
	log.Debugf("outbox: drainer started for user %s", o.userID)
	defer log.Debugf("outbox: drainer stopped for user %s", o.userID)
	defer o.close()

	for {
		op := o.next()
		if op == nil {
			select {
			case <-ctx.Done():
				return
			case <-o.wakeup:
				continue
			}
		}

		if ctx.Err() != nil {
			o.complete(op, ErrClosed)
			return
		}
		o.process(ctx, op)
	}
}

func (o *Outbox) next() *operation {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if len(o.queue) == 0 {
		return nil
	}
	op := o.queue[0]
	o.queue = o.queue[1:]
	return op
}

func (o *Outbox) process(ctx context.Context, op *operation) {
	change := o.resolve(op.change)
	labels := prometheus.Labels{
		"collection": change.Collection.String(),
		"kind":       change.Kind.String(),
	}

	var res dispatch.Result
	attempt := func() error {
		var err error
		res, err = o.executor.Execute(ctx, o.userID, change)
		if err == nil {
			return nil
		}
		if errors.Is(err, dispatch.ErrNotSyncable) || errors.Is(err, remote.ErrNotFound) ||
			errors.Is(err, remote.ErrInvalidInput) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warnf("outbox: %s (%s) failed, retrying in %s: %s", change, op.key, wait, err)
		o.metrics.CounterOutboxRetries.Inc()
	}

	start := time.Now()
	err := backoff.RetryNotify(attempt, backoff.WithContext(o.backOff(), ctx), notify)
	o.metrics.HistogramSyncDuration.
		With(prometheus.Labels{"collection": change.Collection.String()}).
		Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, dispatch.ErrNotSyncable):
		log.Debugf("outbox: %s skipped: %s", change, err)
		o.metrics.CounterSyncSkipped.With(labels).Inc()
		// nothing to send is not a failure
		err = nil
	case err != nil:
		o.metrics.CounterSyncDispatched.With(labels).Inc()
		o.metrics.CounterSyncFailed.With(labels).Inc()
		log.Errorf("outbox: %s (%s) failed: %s", change, op.key, err)
	default:
		o.metrics.CounterSyncDispatched.With(labels).Inc()
		if res.NeedsMerge() {
			o.remember(res)
			o.merger.MergeByKey(res)
		}
	}
	if change.Kind == diff.KindDeleted {
		o.forget(change.Identity.LocalKey)
	}

	o.complete(op, err)
}

func (o *Outbox) close() {
	o.mutex.Lock()
	o.closed = true
	queued := o.queue
	o.queue = nil
	o.mutex.Unlock()

	if len(queued) > 0 {
		log.Warnf("outbox: closed with %d queued operations for user %s", len(queued), o.userID)
	}
	for _, op := range queued {
		o.complete(op, ErrClosed)
	}
}

func (o *Outbox) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.config.InitialInterval
	b.MaxInterval = o.config.MaxInterval
	// bounded by MaxRetries only
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, o.config.MaxRetries)
}

func (o *Outbox) complete(op *operation, err error) {
	o.mutex.Lock()
	op.err = err
	if err != nil {
		op.status = StatusFailed
	} else {
		op.status = StatusDone
	}
	close(op.done)

	o.completed = append(o.completed, op.key)
	if len(o.completed) > defaultRetainCompleted {
		delete(o.ops, o.completed[0])
		o.completed = o.completed[1:]
	}
	pending := o.pendingLocked()
	o.mutex.Unlock()

	o.metrics.GaugeOutboxPending.Set(float64(pending))
}

func (o *Outbox) remember(res dispatch.Result) {
	if res.Kind != diff.KindCreated || res.LocalKey == "" {
		return
	}
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if _, ok := o.created[res.LocalKey]; !ok {
		o.createdOrder = append(o.createdOrder, res.LocalKey)
	}
	o.created[res.LocalKey] = res

	if len(o.created) <= defaultRetainCreated {
		return
	}
	// evict the oldest identity no queued operation still refers to
	for i, key := range o.createdOrder {
		if o.queuedLocked(key) {
			continue
		}
		delete(o.created, key)
		o.createdOrder = slices.Delete(o.createdOrder, i, i+1)
		return
	}
}

// forget drops the identity of a removed element.
func (o *Outbox) forget(key string) {
	if key == "" {
		return
	}
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if _, ok := o.created[key]; !ok {
		return
	}
	delete(o.created, key)
	o.createdOrder = slices.DeleteFunc(o.createdOrder, func(k string) bool { return k == key })
}

func (o *Outbox) queuedLocked(key string) bool {
	for _, op := range o.queue {
		if op.change.Identity.LocalKey == key {
			return true
		}
	}
	return false
}

// Remembered returns the number of server identities kept for resolving.
func (o *Outbox) Remembered() int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return len(o.created)
}

// resolve fills in the server identity of an element created earlier in
// this session whose change was captured before the identity was known.
func (o *Outbox) resolve(change diff.Change) diff.Change {
	key := change.Identity.LocalKey
	if key == "" || change.Kind == diff.KindCreated {
		return change
	}

	o.mutex.Lock()
	created, ok := o.created[key]
	o.mutex.Unlock()
	if !ok {
		return change
	}

	switch {
	case change.Workout != nil && created.Workout != nil && change.Workout.ID == "":
		w := change.Workout.Clone()
		w.ID = created.Workout.ID
		change.Workout = &w
		change.Identity.ID = w.ID
	case change.Photo != nil && created.Photo != nil && change.Photo.ID == "":
		p := change.Photo.Clone()
		p.ID = created.Photo.ID
		if model.IsRawImage(p.ImageRef) {
			p.ImageRef = created.Photo.ImageRef
		}
		change.Photo = &p
		change.Identity.ID = p.ID
	case change.Exercise != nil && created.Exercise != nil && change.Exercise.ID == "":
		e := *change.Exercise
		e.ID = created.Exercise.ID
		change.Exercise = &e
		change.Identity.ID = e.ID
	case change.Template != nil && created.Template != nil && change.Template.ID == "":
		t := change.Template.Clone()
		t.ID = created.Template.ID
		change.Template = &t
		change.Identity.ID = t.ID
	default:
		return change
	}

	log.Tracef("outbox: resolved %s to server id %s", key, change.Identity.ID)
	return change
}
