package remotetest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/remote"
)

const HostedImagesURL = "https://images.liftsync.test"

var _ remote.Store = (*Store)(nil)

// Call is one recorded invocation of the fake store.
type Call struct {
	Method string
	UserID string
	Arg    any
}

// Store is an in-memory remote.Store that records every call. Methods can be
// held (blocked until released) or made to fail, to drive timing and
// failure scenarios deterministically.
type Store struct {
	mutex sync.Mutex

	calls []Call
	holds map[string]chan struct{}
	fails map[string]*failure
	idSeq int

	Profiles  map[string]model.Profile
	Workouts  map[string][]model.WorkoutRecord
	Photos    map[string][]model.PhotoRecord
	Exercises map[string][]model.ExerciseDefinition
	Templates map[string][]model.ProgramTemplate
	Feed      map[string][]model.FeedItem
}

func NewStore() *Store {
	return &Store{
		holds:     make(map[string]chan struct{}),
		fails:     make(map[string]*failure),
		Profiles:  make(map[string]model.Profile),
		Workouts:  make(map[string][]model.WorkoutRecord),
		Photos:    make(map[string][]model.PhotoRecord),
		Exercises: make(map[string][]model.ExerciseDefinition),
		Templates: make(map[string][]model.ProgramTemplate),
		Feed:      make(map[string][]model.FeedItem),
	}
}

// Hold blocks every subsequent call of method until the returned release
// func is called (or the call's context is done).
func (s *Store) Hold(method string) (release func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ch := make(chan struct{})
	s.holds[method] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mutex.Lock()
			if s.holds[method] == ch {
				delete(s.holds, method)
			}
			s.mutex.Unlock()
			close(ch)
		})
	}
}

type failure struct {
	err error
	// remaining failing calls; negative means no limit
	remaining int
}

// FailWith makes every subsequent call of method return err; nil clears it.
func (s *Store) FailWith(method string, err error) {
	s.FailTimes(method, -1, err)
}

// FailTimes makes the next n calls of method return err.
func (s *Store) FailTimes(method string, n int, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err == nil || n == 0 {
		delete(s.fails, method)
		return
	}
	s.fails[method] = &failure{err: err, remaining: n}
}

func (s *Store) Calls() []Call {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return slices.Clone(s.calls)
}

func (s *Store) CallsFor(method string) []Call {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var calls []Call
	for _, c := range s.calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

func (s *Store) CallCount(method string) int {
	return len(s.CallsFor(method))
}

// enter records the call, waits out a hold and returns the configured failure.
func (s *Store) enter(ctx context.Context, method, userID string, arg any) error {
	s.mutex.Lock()
	s.calls = append(s.calls, Call{Method: method, UserID: userID, Arg: arg})
	hold := s.holds[method]
	s.mutex.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	f, ok := s.fails[method]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(s.fails, method)
		}
	}
	return f.err
}

func (s *Store) nextID(prefix string) string {
	s.idSeq++
	return fmt.Sprintf("%s-%d", prefix, s.idSeq)
}

func (s *Store) hostedURL(name string) string {
	return fmt.Sprintf("%s/%s.jpg", HostedImagesURL, name)
}

func (s *Store) UpsertProfile(ctx context.Context, userID string, profile model.Profile) (model.Profile, error) {
	if err := s.enter(ctx, "UpsertProfile", userID, profile); err != nil {
		return model.Profile{}, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	profile.UserID = userID
	if model.IsRawImage(profile.ProfilePicture) {
		profile.ProfilePicture = s.hostedURL(userID + "-profile")
	}
	if model.IsRawImage(profile.CoverPicture) {
		profile.CoverPicture = s.hostedURL(userID + "-cover")
	}
	s.Profiles[userID] = profile
	return profile, nil
}

func (s *Store) CreateWorkout(ctx context.Context, userID string, workout model.WorkoutRecord) (model.WorkoutRecord, error) {
	if err := s.enter(ctx, "CreateWorkout", userID, workout); err != nil {
		return model.WorkoutRecord{}, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	created := workout.Clone()
	created.ID = s.nextID("w")
	s.Workouts[userID] = append(s.Workouts[userID], created)
	return created.Clone(), nil
}

func (s *Store) DeleteWorkout(ctx context.Context, userID string, startedAt time.Time, name string) error {
	if err := s.enter(ctx, "DeleteWorkout", userID, model.WorkoutRecord{Name: name, StartedAt: startedAt}); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	workouts := s.Workouts[userID]
	for i, w := range workouts {
		if w.StartedAt.Equal(startedAt) && w.Name == name {
			s.Workouts[userID] = slices.Delete(workouts, i, i+1)
			return nil
		}
	}
	return remote.ErrNotFound
}

func (s *Store) CreatePhoto(ctx context.Context, userID string, image []byte, meta model.PhotoRecord) (model.PhotoRecord, error) {
	if err := s.enter(ctx, "CreatePhoto", userID, meta); err != nil {
		return model.PhotoRecord{}, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	created := meta.Clone()
	created.ID = s.nextID("p")
	if image != nil {
		created.ImageRef = s.hostedURL(created.ID)
	}
	s.Photos[userID] = append(s.Photos[userID], created)
	return created.Clone(), nil
}

func (s *Store) UpdatePhoto(ctx context.Context, userID, photoID string, patch model.PhotoPatch) error {
	if err := s.enter(ctx, "UpdatePhoto", userID, patch); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, p := range s.Photos[userID] {
		if p.ID != photoID {
			continue
		}
		if patch.Caption != nil {
			p.Caption = patch.Caption
		}
		if patch.Weight != nil {
			p.Weight = patch.Weight
		}
		if patch.PumpScore != nil {
			p.PumpScore = patch.PumpScore
		}
		if patch.Public != nil {
			p.Public = *patch.Public
		}
		if patch.Comments != nil {
			p.Comments = slices.Clone(*patch.Comments)
		}
		s.Photos[userID][i] = p
		return nil
	}
	return remote.ErrNotFound
}

func (s *Store) DeletePhoto(ctx context.Context, userID, photoID, imageURL string) error {
	if err := s.enter(ctx, "DeletePhoto", userID, model.PhotoRecord{ID: photoID, ImageRef: imageURL}); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	photos := s.Photos[userID]
	for i, p := range photos {
		if p.ID == photoID {
			s.Photos[userID] = slices.Delete(photos, i, i+1)
			return nil
		}
	}
	return remote.ErrNotFound
}

func (s *Store) CreateExerciseDefinition(ctx context.Context, userID string, exercise model.ExerciseDefinition) (model.ExerciseDefinition, error) {
	if err := s.enter(ctx, "CreateExerciseDefinition", userID, exercise); err != nil {
		return model.ExerciseDefinition{}, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	exercise.ID = s.nextID("e")
	s.Exercises[userID] = append(s.Exercises[userID], exercise)
	return exercise, nil
}

func (s *Store) DeleteExerciseDefinition(ctx context.Context, userID string, exercise model.ExerciseDefinition) error {
	if err := s.enter(ctx, "DeleteExerciseDefinition", userID, exercise); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	exercises := s.Exercises[userID]
	for i := len(exercises) - 1; i >= 0; i-- {
		e := exercises[i]
		var match bool
		switch {
		case exercise.ID != "":
			match = e.ID == exercise.ID
		case exercise.LocalKey != "":
			match = e.LocalKey == exercise.LocalKey
		default:
			match = e.Name == exercise.Name && e.MuscleGroup == exercise.MuscleGroup
		}
		if match {
			s.Exercises[userID] = slices.Delete(exercises, i, i+1)
			return nil
		}
	}
	return remote.ErrNotFound
}

func (s *Store) CreateProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) (model.ProgramTemplate, error) {
	if err := s.enter(ctx, "CreateProgramTemplate", userID, template); err != nil {
		return model.ProgramTemplate{}, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	created := template.Clone()
	created.ID = s.nextID("t")
	s.Templates[userID] = append(s.Templates[userID], created)
	return created.Clone(), nil
}

func (s *Store) UpdateProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) error {
	if err := s.enter(ctx, "UpdateProgramTemplate", userID, template); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, t := range s.Templates[userID] {
		if t.ID == template.ID {
			s.Templates[userID][i] = template.Clone()
			return nil
		}
	}
	return remote.ErrNotFound
}

func (s *Store) DeleteProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) error {
	if err := s.enter(ctx, "DeleteProgramTemplate", userID, template); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	templates := s.Templates[userID]
	for i := len(templates) - 1; i >= 0; i-- {
		t := templates[i]
		var match bool
		switch {
		case template.ID != "":
			match = t.ID == template.ID
		case template.LocalKey != "":
			match = t.LocalKey == template.LocalKey
		default:
			match = t.Name == template.Name
		}
		if match {
			s.Templates[userID] = slices.Delete(templates, i, i+1)
			return nil
		}
	}
	return remote.ErrNotFound
}

func (s *Store) GetFriendsFeed(ctx context.Context, userID string) ([]model.FeedItem, error) {
	if err := s.enter(ctx, "GetFriendsFeed", userID, nil); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return slices.Clone(s.Feed[userID]), nil
}

func (s *Store) LoadState(ctx context.Context, userID string) (model.AppState, error) {
	if err := s.enter(ctx, "LoadState", userID, nil); err != nil {
		return model.AppState{}, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	state := model.AppState{
		Profile:          s.Profiles[userID],
		History:          slices.Clone(s.Workouts[userID]),
		ProgressPhotos:   slices.Clone(s.Photos[userID]),
		CustomExercises:  slices.Clone(s.Exercises[userID]),
		ProgramTemplates: slices.Clone(s.Templates[userID]),
		FriendsFeed:      slices.Clone(s.Feed[userID]),
	}
	// hand out deep copies
	return state.Clone(), nil
}

// SetFeed replaces the friends feed served for userID.
func (s *Store) SetFeed(userID string, items []model.FeedItem) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Feed[userID] = slices.Clone(items)
}
