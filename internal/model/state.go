package model

import "slices"

// AppState is one immutable version of the aggregate client state.
// A new version is produced by every local mutation, never modified in place.
type AppState struct {
	Profile          Profile              `json:"profile"`
	History          []WorkoutRecord      `json:"history"`
	ProgressPhotos   []PhotoRecord        `json:"progressPhotos"`
	CustomExercises  []ExerciseDefinition `json:"customExercises"`
	ProgramTemplates []ProgramTemplate    `json:"programTemplates"`

	// inbound only, replaced wholesale from the remote store
	Friends        []Friend        `json:"friends"`
	FriendRequests []FriendRequest `json:"friendRequests"`
	FriendsFeed    []FeedItem      `json:"friendsFeed"`

	// in-progress workout, mirrored to session storage
	ActiveWorkout *WorkoutRecord `json:"activeWorkout,omitempty"`
}

// Profile holds the scalar profile fields. It is upserted as a whole record.
type Profile struct {
	UserID         string  `json:"userId"`
	Username       string  `json:"username"`
	DisplayName    string  `json:"displayName"`
	Bio            string  `json:"bio"`
	Units          string  `json:"units"`
	Theme          string  `json:"theme"`
	ProfilePicture string  `json:"profilePicture"`
	CoverPicture   string  `json:"coverPicture"`
	BodyWeight     float64 `json:"bodyWeight"`
	Private        bool    `json:"private"`
}

// Clone returns a deep copy, so updaters can freely modify the result.
func (s AppState) Clone() AppState {
	c := s
	c.History = cloneEach(s.History, WorkoutRecord.Clone)
	c.ProgressPhotos = cloneEach(s.ProgressPhotos, PhotoRecord.Clone)
	c.CustomExercises = slices.Clone(s.CustomExercises)
	c.ProgramTemplates = cloneEach(s.ProgramTemplates, ProgramTemplate.Clone)
	c.Friends = slices.Clone(s.Friends)
	c.FriendRequests = slices.Clone(s.FriendRequests)
	c.FriendsFeed = slices.Clone(s.FriendsFeed)
	if s.ActiveWorkout != nil {
		aw := s.ActiveWorkout.Clone()
		c.ActiveWorkout = &aw
	}
	return c
}

// cloneEach deep-copies a slice element by element; nil stays nil.
func cloneEach[T any](s []T, clone func(T) T) []T {
	if s == nil {
		return nil
	}
	c := make([]T, len(s))
	for i, v := range s {
		c[i] = clone(v)
	}
	return c
}
