package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/2beens/liftsync/internal/app"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/outbox"
	"github.com/2beens/liftsync/internal/remote/remotetest"
	"github.com/2beens/liftsync/internal/telemetry/metrics"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const userID = "u1"

var day = time.Date(2024, 9, 1, 6, 0, 0, 0, time.UTC)

func startSession(t *testing.T, store *remotetest.Store, mode app.Mode) *app.Session {
	t.Helper()
	s, err := app.Start(context.Background(), app.SessionParams{
		UserID:       userID,
		Store:        store,
		Mode:         mode,
		FeedInterval: time.Hour,
		Outbox: outbox.Config{
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			MaxRetries:      3,
		},
		Metrics: metrics.NewTestManager(),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func syncSession(t *testing.T, s *app.Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Sync(ctx))
}

func testWorkout(name string, offset int) model.WorkoutRecord {
	return model.WorkoutRecord{
		Name:      name,
		StartedAt: day.Add(time.Duration(offset) * time.Hour),
		Duration:  time.Duration(gofakeit.Number(30, 90)) * time.Minute,
		Exercises: []model.ExerciseEntry{
			{
				Name:        "Squat",
				MuscleGroup: "legs",
				Sets:        []model.SetEntry{{Weight: 100, Reps: 5, Completed: true}},
			},
		},
	}
}

func TestParseMode(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    app.Mode
		wantErr bool
	}{
		{in: "snapshot", want: app.ModeSnapshot},
		{in: " Outbox ", want: app.ModeOutbox},
		{in: "", want: app.ModeOutbox},
		{in: "optimistic", wantErr: true},
	} {
		mode, err := app.ParseMode(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, mode)
	}
}

func TestStart_Validation(t *testing.T) {
	_, err := app.Start(context.Background(), app.SessionParams{Store: remotetest.NewStore()})
	assert.Error(t, err)

	_, err = app.Start(context.Background(), app.SessionParams{UserID: userID})
	assert.Error(t, err)

	_, err = app.Start(context.Background(), app.SessionParams{
		UserID: userID,
		Store:  remotetest.NewStore(),
		Mode:   app.Mode("eventual"),
	})
	assert.Error(t, err)

	store := remotetest.NewStore()
	store.FailWith("LoadState", errors.New("offline"))
	_, err = app.Start(context.Background(), app.SessionParams{UserID: userID, Store: store})
	assert.ErrorContains(t, err, "offline")
}

func TestSession_SnapshotMode_HydrateAndAdd(t *testing.T) {
	store := remotetest.NewStore()
	existing := testWorkout("Legs", 0)
	existing.ID = "w-0"
	store.Workouts[userID] = []model.WorkoutRecord{existing}

	s := startSession(t, store, app.ModeSnapshot)
	assert.Equal(t, app.ModeSnapshot, s.Mode())
	assert.Nil(t, s.Outbox())
	require.Len(t, s.State().History, 1)

	key, err := s.Mutations().AddWorkout(testWorkout("Push", 1))
	require.NoError(t, err)
	assert.Empty(t, key)

	syncSession(t, s)
	assert.Equal(t, 1, store.CallCount("CreateWorkout"))
	require.Eventually(t, func() bool {
		history := s.State().History
		return len(history) == 2 && history[1].ID != ""
	}, time.Second, 10*time.Millisecond)
	assert.Len(t, store.Workouts[userID], 2)
}

func TestSession_OutboxMode_UpdateBeforeCreateFinished(t *testing.T) {
	store := remotetest.NewStore()
	s := startSession(t, store, app.ModeOutbox)

	release := store.Hold("CreatePhoto")
	createKey, err := s.Mutations().AddPhoto(model.PhotoRecord{
		ImageRef: model.EncodeImage([]byte{0x89, 'P', 'N', 'G'}, "image/png"),
		TakenAt:  day,
	})
	require.NoError(t, err)
	require.NotEmpty(t, createKey)

	local := s.State().ProgressPhotos[0]
	require.NotEmpty(t, local.LocalKey)
	assert.Empty(t, local.ID)

	caption := "week 12"
	updateKey, err := s.Mutations().UpdatePhoto(local.LocalKey, model.PhotoPatch{Caption: &caption})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Outbox().Pending())

	release()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := s.Outbox().Await(ctx, updateKey)
	require.NoError(t, err)
	assert.Equal(t, outbox.StatusDone, status)

	require.Len(t, store.Photos[userID], 1)
	remotePhoto := store.Photos[userID][0]
	require.NotNil(t, remotePhoto.Caption)
	assert.Equal(t, caption, *remotePhoto.Caption)

	photo := s.State().ProgressPhotos[0]
	assert.Equal(t, remotePhoto.ID, photo.ID)
	assert.Equal(t, remotetest.HostedImagesURL+"/"+remotePhoto.ID+".jpg", photo.ImageRef)
	assert.Equal(t, caption, *photo.Caption)
}

func TestSession_OutboxMode_ConcurrentIntents(t *testing.T) {
	store := remotetest.NewStore()
	s := startSession(t, store, app.ModeOutbox)

	workouts := make([]model.WorkoutRecord, 10)
	for i := range workouts {
		workouts[i] = testWorkout(gofakeit.Word(), i)
	}

	var wg sync.WaitGroup
	for _, w := range workouts {
		wg.Add(1)
		go func(w model.WorkoutRecord) {
			defer wg.Done()
			_, err := s.Mutations().AddWorkout(w)
			assert.NoError(t, err)
		}(w)
	}
	wg.Wait()

	syncSession(t, s)
	assert.Equal(t, 10, store.CallCount("CreateWorkout"))
	history := s.State().History
	require.Len(t, history, 10)
	for _, w := range history {
		assert.NotEmpty(t, w.ID, w.Name)
	}
}

func TestSession_OutboxMode_RetriesTransientFailure(t *testing.T) {
	store := remotetest.NewStore()
	store.FailTimes("CreateExerciseDefinition", 2, errors.New("503"))
	s := startSession(t, store, app.ModeOutbox)

	key, err := s.Mutations().AddExercise(model.ExerciseDefinition{Name: "Zercher squat", MuscleGroup: "legs"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := s.Outbox().Await(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, outbox.StatusDone, status)
	assert.Equal(t, 3, store.CallCount("CreateExerciseDefinition"))
	assert.NotEmpty(t, s.State().CustomExercises[0].ID)
}

func TestSession_FeedIsRefreshedOnStart(t *testing.T) {
	store := remotetest.NewStore()
	store.SetFeed(userID, []model.FeedItem{
		{ID: "f1", Kind: model.FeedItemKindWorkout, UserID: "u2", Username: "ana", Title: "Deadlift PR"},
		{ID: "f2", Kind: model.FeedItemKindPhoto, UserID: "u3", Username: "bo", Title: "Cut week 4"},
	})

	s := startSession(t, store, app.ModeSnapshot)
	require.Eventually(t, func() bool {
		return len(s.Feed().Latest()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Len(t, s.State().FriendsFeed, 2)

	syncSession(t, s)
	// the feed is inbound only
	for _, call := range store.Calls() {
		assert.Contains(t, []string{"LoadState", "GetFriendsFeed"}, call.Method)
	}
}

func TestSession_FeedSkippedWhenSignedOut(t *testing.T) {
	store := remotetest.NewStore()
	s, err := app.Start(context.Background(), app.SessionParams{
		UserID:        userID,
		Store:         store,
		Mode:          app.ModeOutbox,
		FeedInterval:  time.Hour,
		Authenticated: func() bool { return false },
	})
	require.NoError(t, err)
	s.Close()

	assert.Zero(t, store.CallCount("GetFriendsFeed"))
}

func TestSession_SyncAfterClose(t *testing.T) {
	store := remotetest.NewStore()
	release := store.Hold("CreateWorkout")
	defer release()
	s := startSession(t, store, app.ModeOutbox)

	inFlight, err := s.Mutations().AddWorkout(testWorkout("Push", 0))
	require.NoError(t, err)
	queued, err := s.Mutations().AddWorkout(testWorkout("Pull", 1))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return store.CallCount("CreateWorkout") == 1
	}, time.Second, 5*time.Millisecond)

	s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, s.Sync(ctx), app.ErrSessionClosed)
	assert.NoError(t, ctx.Err())

	status, err := s.Outbox().Await(ctx, queued)
	assert.Equal(t, outbox.StatusFailed, status)
	assert.ErrorIs(t, err, outbox.ErrClosed)
	status, err = s.Outbox().Await(ctx, inFlight)
	assert.Equal(t, outbox.StatusFailed, status)
	assert.Error(t, err)
	assert.Zero(t, s.Outbox().Pending())
	// both stay in local state
	assert.Len(t, s.State().History, 2)
}
