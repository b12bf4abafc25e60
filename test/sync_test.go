//go:build integration_test || all_tests

package test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/liftsync/internal/app"
	"github.com/2beens/liftsync/internal/middleware"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/outbox"
	"github.com/2beens/liftsync/internal/remote"
	"github.com/2beens/liftsync/internal/session"
	"github.com/2beens/liftsync/internal/store"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func pingServer(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverEndpoint+"/users/ping/state", nil)
	if err != nil {
		return err
	}
	req.Header.Set(middleware.APIKeyHeader, testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func (s *IntegrationTestSuite) startSession(ctx context.Context, userID string, mode app.Mode) *app.Session {
	sess, err := app.Start(ctx, app.SessionParams{
		UserID:       userID,
		Store:        remote.NewClient(serverEndpoint, testAPIKey, 10*time.Second),
		WorkoutStore: session.NewRedisStore(s.redisClient, time.Hour),
		Mode:         mode,
		FeedInterval: time.Hour,
		Outbox: outbox.Config{
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			MaxRetries:      3,
		},
	})
	s.Require().NoError(err)
	s.T().Cleanup(sess.Close)
	return sess
}

func (s *IntegrationTestSuite) syncSession(sess *app.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	s.Require().NoError(sess.Sync(ctx))
}

func newWorkout(name string, startedAt time.Time) model.WorkoutRecord {
	return model.WorkoutRecord{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Duration(gofakeit.Number(30, 90)) * time.Minute,
		Exercises: []model.ExerciseEntry{
			{
				Name:        "Deadlift",
				MuscleGroup: "back",
				Sets: []model.SetEntry{
					{Weight: 140, Reps: 5, RPE: 8, Completed: true},
					{Weight: 150, Reps: 3, RPE: 9, Completed: true, SetType: "top"},
				},
			},
		},
	}
}

func (s *IntegrationTestSuite) TestOutboxSession_EndToEnd() {
	ctx := context.Background()
	userID := uuid.NewString()
	sess := s.startSession(ctx, userID, app.ModeOutbox)
	m := sess.Mutations()

	startedAt := time.Now().UTC().Truncate(time.Second).Add(-2 * time.Hour)
	_, err := m.AddWorkout(newWorkout("Pull day", startedAt))
	s.Require().NoError(err)

	_, err = m.AddPhoto(model.PhotoRecord{
		ImageRef: model.EncodeImage(pngBytes, "image/png"),
		TakenAt:  startedAt,
	})
	s.Require().NoError(err)
	// the update is queued before the creation has a server id
	caption := "week 3"
	public := true
	_, err = m.UpdatePhoto(sess.State().ProgressPhotos[0].LocalKey, model.PhotoPatch{Caption: &caption, Public: &public})
	s.Require().NoError(err)

	_, err = m.AddExercise(model.ExerciseDefinition{Name: "Jefferson curl", MuscleGroup: "back", Equipment: "barbell"})
	s.Require().NoError(err)
	_, err = m.AddTemplate(model.ProgramTemplate{
		Name: "Texas method",
		Weeks: []model.ProgramWeek{
			{Days: []model.ProgramDay{{Name: "Volume", Exercises: []model.Prescription{{Exercise: "Squat", Sets: 5, Reps: "5"}}}}},
		},
	})
	s.Require().NoError(err)
	_, err = m.UpdateProfile(model.Profile{
		Username:       "lifter-" + userID[:8],
		Units:          "kg",
		ProfilePicture: model.EncodeImage(pngBytes, "image/png"),
	})
	s.Require().NoError(err)

	s.syncSession(sess)
	local := sess.State()

	// a fresh session sees exactly what was synced
	reloaded := s.startSession(ctx, userID, app.ModeOutbox).State()

	s.Require().Len(reloaded.History, 1)
	s.Equal(local.History[0].ID, reloaded.History[0].ID)
	s.True(startedAt.Equal(reloaded.History[0].StartedAt))
	s.Equal(local.History[0].TotalVolume(), reloaded.History[0].TotalVolume())

	s.Require().Len(reloaded.ProgressPhotos, 1)
	photo := reloaded.ProgressPhotos[0]
	s.Equal(local.ProgressPhotos[0].ID, photo.ID)
	s.Require().NotNil(photo.Caption)
	s.Equal(caption, *photo.Caption)
	s.True(photo.Public)
	s.Equal(local.ProgressPhotos[0].ImageRef, photo.ImageRef)
	s.Contains(photo.ImageRef, serverEndpoint+"/images/")

	s.Require().Len(reloaded.CustomExercises, 1)
	s.Equal("barbell", reloaded.CustomExercises[0].Equipment)
	s.Require().Len(reloaded.ProgramTemplates, 1)
	s.True(local.ProgramTemplates[0].Equal(reloaded.ProgramTemplates[0]))

	s.Equal("kg", reloaded.Profile.Units)
	s.False(model.IsRawImage(reloaded.Profile.ProfilePicture))
	s.Equal(local.Profile.ProfilePicture, reloaded.Profile.ProfilePicture)

	resp, err := http.Get(photo.ImageRef)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("image/png", resp.Header.Get("Content-Type"))
}

func (s *IntegrationTestSuite) TestOutboxSession_RemoveBeforeCreateSynced() {
	ctx := context.Background()
	userID := uuid.NewString()
	sess := s.startSession(ctx, userID, app.ModeOutbox)
	m := sess.Mutations()

	_, err := m.AddExercise(model.ExerciseDefinition{Name: "Pendlay row", MuscleGroup: "back"})
	s.Require().NoError(err)
	key, err := m.RemoveExercise(sess.State().CustomExercises[0].LocalKey)
	s.Require().NoError(err)

	awaitCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	status, err := sess.Outbox().Await(awaitCtx, key)
	s.Require().NoError(err)
	s.Equal(outbox.StatusDone, status)

	reloaded := s.startSession(ctx, userID, app.ModeOutbox).State()
	s.Empty(reloaded.CustomExercises)
}

func (s *IntegrationTestSuite) TestSnapshotSession_EndToEnd() {
	ctx := context.Background()
	userID := uuid.NewString()
	sess := s.startSession(ctx, userID, app.ModeSnapshot)

	startedAt := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	_, err := sess.Mutations().AddWorkout(newWorkout("Legs", startedAt))
	s.Require().NoError(err)
	s.syncSession(sess)

	s.Eventually(func() bool {
		history := sess.State().History
		return len(history) == 1 && history[0].ID != ""
	}, 5*time.Second, 50*time.Millisecond)

	_, err = sess.Mutations().RemoveWorkout(sess.State().History[0].ID)
	s.Require().NoError(err)
	s.syncSession(sess)

	reloaded := s.startSession(ctx, userID, app.ModeSnapshot).State()
	s.Empty(reloaded.History)
}

func (s *IntegrationTestSuite) TestWorkoutSession_SurvivesRestart() {
	ctx := context.Background()
	userID := uuid.NewString()

	first := s.startSession(ctx, userID, app.ModeOutbox)
	s.Require().NoError(first.Workout().Start(ctx, model.WorkoutRecord{Name: "Push"}))
	s.Require().NoError(first.Workout().Update(ctx, func(w *model.WorkoutRecord) {
		w.Exercises = append(w.Exercises, model.ExerciseEntry{
			Name:        "Bench press",
			MuscleGroup: "chest",
			Sets:        []model.SetEntry{{Weight: 100, Reps: 5, Completed: true}},
		})
	}))
	first.Close()

	second := s.startSession(ctx, userID, app.ModeOutbox)
	active := second.Workout().Active()
	s.Require().NotNil(active)
	s.Equal("Push", active.Name)
	s.Require().Len(active.Exercises, 1)

	key, err := second.Workout().Finish(ctx, time.Now().UTC())
	s.Require().NoError(err)
	awaitCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	status, err := second.Outbox().Await(awaitCtx, key)
	s.Require().NoError(err)
	s.Equal(outbox.StatusDone, status)

	saved, err := session.NewRedisStore(s.redisClient, time.Hour).Load(ctx, userID)
	s.Require().NoError(err)
	s.Nil(saved)

	reloaded := s.startSession(ctx, userID, app.ModeOutbox).State()
	s.Require().Len(reloaded.History, 1)
	s.Equal(500.0, reloaded.History[0].TotalVolume())
	s.Nil(reloaded.ActiveWorkout)
}

func (s *IntegrationTestSuite) TestFriendsFeed() {
	ctx := context.Background()
	me := uuid.NewString()
	friend := uuid.NewString()
	s.Require().NoError(store.NewRepo(s.dbPool, nil).AddFriendship(ctx, me, friend))

	friendSession := s.startSession(ctx, friend, app.ModeOutbox)
	_, err := friendSession.Mutations().UpdateProfile(model.Profile{Username: "friend"})
	s.Require().NoError(err)
	_, err = friendSession.Mutations().AddWorkout(newWorkout("Conditioning", time.Now().UTC().Add(-time.Hour)))
	s.Require().NoError(err)
	s.syncSession(friendSession)

	mySession := s.startSession(ctx, me, app.ModeOutbox)
	s.Require().NoError(mySession.Feed().Refresh(ctx))

	feed := mySession.Feed().Latest()
	s.Require().Len(feed, 1)
	s.Equal(model.FeedItemKindWorkout, feed[0].Kind)
	s.Equal("friend", feed[0].Username)
	s.Equal("Conditioning", feed[0].Title)
	s.Len(mySession.State().FriendsFeed, 1)
}

func (s *IntegrationTestSuite) TestWrongAPIKey() {
	_, err := app.Start(context.Background(), app.SessionParams{
		UserID: uuid.NewString(),
		Store:  remote.NewClient(serverEndpoint, "wrong-key", 5*time.Second),
	})
	s.Require().Error(err)
	s.Contains(err.Error(), "status 401")
}
