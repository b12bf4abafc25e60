package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2beens/liftsync/internal/dispatch"
	"github.com/2beens/liftsync/internal/feed"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/outbox"
	"github.com/2beens/liftsync/internal/reconcile"
	"github.com/2beens/liftsync/internal/remote"
	"github.com/2beens/liftsync/internal/session"
	"github.com/2beens/liftsync/internal/state"
	"github.com/2beens/liftsync/internal/telemetry/metrics"
	"github.com/2beens/liftsync/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

var ErrSessionClosed = errors.New("session closed")

type Mode string

const (
	// ModeSnapshot diffs every state transition and fires one remote call per
	// change, without retries.
	ModeSnapshot Mode = "snapshot"
	// ModeOutbox queues intents under idempotency keys and drains them in order,
	// with retries.
	ModeOutbox Mode = "outbox"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSnapshot:
		return ModeSnapshot, nil
	case ModeOutbox, "":
		return ModeOutbox, nil
	}
	return "", fmt.Errorf("unknown sync mode: %s", s)
}

type SessionParams struct {
	UserID string
	Store  remote.Store
	// WorkoutStore keeps the in-progress workout across restarts; optional.
	WorkoutStore  session.Store
	Mode          Mode
	FeedInterval  time.Duration
	FeedCache     *feed.Cache
	Outbox        outbox.Config
	Authenticated func() bool
	Metrics       *metrics.Manager
}

// Session wires the sync core for one signed-in user.
type Session struct {
	userID    string
	mode      Mode
	container *state.Container
	mutations *Mutations
	workout   *WorkoutSession
	outbox    *outbox.Outbox
	feed      *feed.Coordinator

	dispatcher *dispatch.Dispatcher

	cancel  context.CancelFunc
	workers sync.WaitGroup
	closed  atomic.Bool
}

// Start hydrates the state from the remote store and starts the background
// workers: the outbox drainer (outbox mode) and the feed coordinator.
func Start(ctx context.Context, params SessionParams) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "app.session.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if params.UserID == "" {
		return nil, errors.New("session without user")
	}
	if params.Store == nil {
		return nil, errors.New("session without remote store")
	}
	if params.Metrics == nil {
		params.Metrics = metrics.NewTestManager()
	}
	if params.Authenticated == nil {
		params.Authenticated = func() bool { return true }
	}
	if params.Mode == "" {
		params.Mode = ModeOutbox
	}
	if params.FeedInterval <= 0 {
		params.FeedInterval = feed.DefaultInterval
	}
	if params.FeedCache == nil {
		params.FeedCache = feed.NewCache(0, params.FeedInterval)
	}

	initial, err := params.Store.LoadState(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	initial.ActiveWorkout = nil

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		userID:    params.UserID,
		mode:      params.Mode,
		container: state.NewContainer(initial),
		cancel:    cancel,
	}

	merger := reconcile.NewMerger(s.container, params.Metrics)
	executor := dispatch.NewExecutor(params.Store)

	switch params.Mode {
	case ModeSnapshot:
		s.dispatcher = dispatch.NewDispatcher(runCtx, params.UserID, executor, merger, params.Metrics)
		s.container.OnTransition(s.dispatcher.OnTransition)
	case ModeOutbox:
		s.outbox = outbox.New(params.UserID, executor, merger, params.Metrics, params.Outbox)
	default:
		cancel()
		return nil, fmt.Errorf("unknown sync mode: %s", params.Mode)
	}

	s.mutations = NewMutations(s.container, s.outbox)
	s.workout = NewWorkoutSession(params.UserID, s.container, s.mutations, params.WorkoutStore)
	if restored, err := s.workout.Restore(ctx); err != nil {
		log.Errorf("session %s: %s", params.UserID, err)
	} else if restored {
		log.Infof("session %s: resumed workout in progress", params.UserID)
	}

	s.feed = feed.NewCoordinator(
		params.UserID,
		params.Store,
		s.container,
		params.FeedCache,
		params.FeedInterval,
		params.Authenticated,
		params.Metrics,
	)

	if s.outbox != nil {
		s.goRun(func() { s.outbox.Run(runCtx) })
	}
	s.goRun(func() { s.feed.Run(runCtx) })

	log.Debugf("session %s started in %s mode", params.UserID, params.Mode)
	return s, nil
}

func (s *Session) goRun(fn func()) {
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		fn()
	}()
}

// Sync blocks until every change made so far has been sent (or given up on),
// or until ctx is done.
func (s *Session) Sync(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.dispatcher != nil {
		done := make(chan struct{})
		go func() {
			s.dispatcher.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for s.outbox.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if s.closed.Load() {
			return ErrSessionClosed
		}
	}
	return nil
}

// Close stops the background workers. Queued outbox operations that were not
// sent yet fail with outbox.ErrClosed.
func (s *Session) Close() {
	s.closed.Store(true)
	s.cancel()
	s.workers.Wait()
	if s.dispatcher != nil {
		s.dispatcher.Wait()
	}
	log.Debugf("session %s closed", s.userID)
}

func (s *Session) Mode() Mode {
	return s.mode
}

func (s *Session) Container() *state.Container {
	return s.container
}

func (s *Session) State() model.AppState {
	return s.container.Snapshot()
}

func (s *Session) Mutations() *Mutations {
	return s.mutations
}

func (s *Session) Workout() *WorkoutSession {
	return s.workout
}

// Outbox is nil in snapshot mode.
func (s *Session) Outbox() *outbox.Outbox {
	return s.outbox
}

func (s *Session) Feed() *feed.Coordinator {
	return s.feed
}
