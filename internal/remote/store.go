package remote

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/liftsync/internal/model"
)

var (
	// ErrNotFound is returned when an identity lookup finds no matching remote row.
	ErrNotFound = errors.New("remote: not found")
	// ErrInvalidInput is returned when the remote store rejects a malformed request.
	ErrInvalidInput = errors.New("remote: invalid input")
)

//go:generate mockgen -source=$GOFILE -destination=../dispatch/store_mocks_test.go -package=dispatch_test

// Store is the remote datastore contract the sync core talks to.
// Every call is a network (or database) round trip.
type Store interface {
	UpsertProfile(ctx context.Context, userID string, profile model.Profile) (model.Profile, error)

	// CreateWorkout persists the workout with its exercises and sets in one transaction.
	CreateWorkout(ctx context.Context, userID string, workout model.WorkoutRecord) (model.WorkoutRecord, error)
	DeleteWorkout(ctx context.Context, userID string, startedAt time.Time, name string) error

	// CreatePhoto uploads the image and inserts the photo row. The returned
	// record carries the server ID and the hosted image URL in ImageRef.
	CreatePhoto(ctx context.Context, userID string, image []byte, meta model.PhotoRecord) (model.PhotoRecord, error)
	UpdatePhoto(ctx context.Context, userID, photoID string, patch model.PhotoPatch) error
	DeletePhoto(ctx context.Context, userID, photoID, imageURL string) error

	CreateExerciseDefinition(ctx context.Context, userID string, exercise model.ExerciseDefinition) (model.ExerciseDefinition, error)
	// DeleteExerciseDefinition deletes by ID when set, then by local key, otherwise
	// the newest exercise with the same name and muscle group.
	DeleteExerciseDefinition(ctx context.Context, userID string, exercise model.ExerciseDefinition) error

	CreateProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) (model.ProgramTemplate, error)
	UpdateProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) error
	// DeleteProgramTemplate deletes by ID when set, then by local key, otherwise
	// the newest template with the same name.
	DeleteProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) error

	GetFriendsFeed(ctx context.Context, userID string) ([]model.FeedItem, error)

	// LoadState hydrates the full app state at session start.
	LoadState(ctx context.Context, userID string) (model.AppState, error)
}
