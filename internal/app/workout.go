package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/session"
	"github.com/2beens/liftsync/internal/state"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNoActiveWorkout   = errors.New("no workout in progress")
	ErrWorkoutInProgress = errors.New("a workout is already in progress")
)

// WorkoutSession manages the in-progress workout. It lives in
// AppState.ActiveWorkout, which is never synced, and is mirrored to session
// storage so it survives a restart. Finishing it appends it to the history.
type WorkoutSession struct {
	// serializes state changes together with their storage writes
	mutex     sync.Mutex
	userID    string
	container *state.Container
	mutations *Mutations
	// optional
	storage session.Store
}

func NewWorkoutSession(
	userID string,
	container *state.Container,
	mutations *Mutations,
	storage session.Store,
) *WorkoutSession {
	return &WorkoutSession{
		userID:    userID,
		container: container,
		mutations: mutations,
		storage:   storage,
	}
}

func (ws *WorkoutSession) Active() *model.WorkoutRecord {
	return ws.container.Snapshot().ActiveWorkout
}

func (ws *WorkoutSession) Start(ctx context.Context, workout model.WorkoutRecord) error {
	if workout.Name == "" {
		return fmt.Errorf("workout without name: %w", ErrInvalidInput)
	}
	if workout.StartedAt.IsZero() {
		workout.StartedAt = time.Now().UTC()
	}

	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	var (
		err   error
		saved model.WorkoutRecord
	)
	ws.container.ApplySilent(func(s model.AppState) model.AppState {
		if s.ActiveWorkout != nil {
			err = ErrWorkoutInProgress
			return s
		}
		next := s.Clone()
		w := workout.Clone()
		next.ActiveWorkout = &w
		saved = w.Clone()
		return next
	})
	if err != nil {
		return err
	}

	return ws.persist(ctx, saved)
}

// Update applies fn to the active workout.
func (ws *WorkoutSession) Update(ctx context.Context, fn func(w *model.WorkoutRecord)) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	var (
		err   error
		saved model.WorkoutRecord
	)
	ws.container.ApplySilent(func(s model.AppState) model.AppState {
		if s.ActiveWorkout == nil {
			err = ErrNoActiveWorkout
			return s
		}
		next := s.Clone()
		fn(next.ActiveWorkout)
		saved = next.ActiveWorkout.Clone()
		return next
	})
	if err != nil {
		return err
	}

	return ws.persist(ctx, saved)
}

// Finish moves the active workout into the history, which syncs it, and
// returns the idempotency key of the creation (empty in snapshot mode).
func (ws *WorkoutSession) Finish(ctx context.Context, finishedAt time.Time) (string, error) {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	key, err := ws.mutations.finishWorkout(finishedAt)
	if err != nil {
		return "", err
	}
	if err := ws.clearStorage(ctx); err != nil {
		log.Errorf("workout session %s: clear storage: %s", ws.userID, err)
	}
	return key, nil
}

func (ws *WorkoutSession) Cancel(ctx context.Context) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	var err error
	ws.container.ApplySilent(func(s model.AppState) model.AppState {
		if s.ActiveWorkout == nil {
			err = ErrNoActiveWorkout
			return s
		}
		next := s.Clone()
		next.ActiveWorkout = nil
		return next
	})
	if err != nil {
		return err
	}

	return ws.clearStorage(ctx)
}

// Restore loads a workout saved by a previous run into the container.
// It reports whether one was found.
func (ws *WorkoutSession) Restore(ctx context.Context) (bool, error) {
	if ws.storage == nil {
		return false, nil
	}

	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	saved, err := ws.storage.Load(ctx, ws.userID)
	if err != nil {
		return false, fmt.Errorf("load active workout: %w", err)
	}
	if saved == nil {
		return false, nil
	}

	ws.container.ApplySilent(func(s model.AppState) model.AppState {
		next := s.Clone()
		next.ActiveWorkout = saved
		return next
	})
	log.Debugf("workout session %s: restored [%s]", ws.userID, saved.Name)
	return true, nil
}

func (ws *WorkoutSession) persist(ctx context.Context, workout model.WorkoutRecord) error {
	if ws.storage == nil {
		return nil
	}
	if err := ws.storage.Save(ctx, ws.userID, workout); err != nil {
		return fmt.Errorf("save active workout: %w", err)
	}
	return nil
}

func (ws *WorkoutSession) clearStorage(ctx context.Context) error {
	if ws.storage == nil {
		return nil
	}
	if err := ws.storage.Clear(ctx, ws.userID); err != nil {
		return fmt.Errorf("clear active workout: %w", err)
	}
	return nil
}
