package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/liftsync/internal/diff"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/remote"
	"github.com/2beens/liftsync/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// ErrNotSyncable is returned for changes that have no remote counterpart,
// e.g. an update of an element the remote store has not assigned an ID yet.
var ErrNotSyncable = errors.New("change has no remote counterpart")

// Result is what a successful remote call gave back. Only creations and
// profile upserts carry a payload worth merging into local state.
type Result struct {
	Collection diff.Collection
	Kind       diff.Kind
	// LocalKey of the element the change was computed for, if it had one.
	LocalKey string

	Profile  *model.Profile
	Workout  *model.WorkoutRecord
	Photo    *model.PhotoRecord
	Exercise *model.ExerciseDefinition
	Template *model.ProgramTemplate
}

// NeedsMerge reports whether the result carries server-assigned data.
func (r Result) NeedsMerge() bool {
	return r.Kind == diff.KindCreated || r.Collection == diff.CollectionProfile
}

// Executor maps one change to exactly one remote store call and runs it synchronously.
type Executor struct {
	store remote.Store
}

func NewExecutor(store remote.Store) *Executor {
	return &Executor{
		store: store,
	}
}

func (e *Executor) Execute(ctx context.Context, userID string, change diff.Change) (_ Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "dispatch.execute")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("collection", change.Collection.String()),
		attribute.String("kind", change.Kind.String()),
		attribute.String("fingerprint", change.Identity.Fingerprint),
	)

	res := Result{
		Collection: change.Collection,
		Kind:       change.Kind,
		LocalKey:   change.Identity.LocalKey,
	}

	switch change.Collection {
	case diff.CollectionProfile:
		return e.profile(ctx, userID, change, res)
	case diff.CollectionHistory:
		return e.workout(ctx, userID, change, res)
	case diff.CollectionProgressPhotos, diff.CollectionPhotoComments:
		return e.photo(ctx, userID, change, res)
	case diff.CollectionCustomExercises:
		return e.exercise(ctx, userID, change, res)
	case diff.CollectionProgramTemplates:
		return e.template(ctx, userID, change, res)
	default:
		return Result{}, fmt.Errorf("unknown collection: %s", change.Collection)
	}
}

func (e *Executor) profile(ctx context.Context, userID string, change diff.Change, res Result) (Result, error) {
	if change.Profile == nil {
		return Result{}, errors.New("profile change without payload")
	}
	profile, err := e.store.UpsertProfile(ctx, userID, *change.Profile)
	if err != nil {
		return Result{}, fmt.Errorf("upsert profile: %w", err)
	}
	res.Profile = &profile
	return res, nil
}

func (e *Executor) workout(ctx context.Context, userID string, change diff.Change, res Result) (Result, error) {
	if change.Workout == nil {
		return Result{}, errors.New("workout change without payload")
	}

	switch change.Kind {
	case diff.KindCreated:
		created, err := e.store.CreateWorkout(ctx, userID, *change.Workout)
		if err != nil {
			return Result{}, fmt.Errorf("create workout: %w", err)
		}
		res.Workout = &created
		return res, nil
	case diff.KindDeleted:
		if err := e.store.DeleteWorkout(ctx, userID, change.Workout.StartedAt, change.Workout.Name); err != nil {
			return Result{}, fmt.Errorf("delete workout: %w", err)
		}
		return res, nil
	default:
		return Result{}, fmt.Errorf("workout %s: %w", change.Kind, ErrNotSyncable)
	}
}

func (e *Executor) photo(ctx context.Context, userID string, change diff.Change, res Result) (Result, error) {
	photo := change.Photo
	if photo == nil {
		return Result{}, errors.New("photo change without payload")
	}

	if change.Kind == diff.KindCreated {
		var image []byte
		if model.IsRawImage(photo.ImageRef) {
			data, _, err := model.DecodeImage(photo.ImageRef)
			if err != nil {
				return Result{}, fmt.Errorf("decode photo image: %w", err)
			}
			image = data
		}
		created, err := e.store.CreatePhoto(ctx, userID, image, *photo)
		if err != nil {
			return Result{}, fmt.Errorf("create photo: %w", err)
		}
		res.Photo = &created
		return res, nil
	}

	if photo.ID == "" {
		return Result{}, fmt.Errorf("photo %s without id: %w", change.Kind, ErrNotSyncable)
	}

	switch {
	case change.Kind == diff.KindDeleted:
		if err := e.store.DeletePhoto(ctx, userID, photo.ID, photo.ImageRef); err != nil {
			return Result{}, fmt.Errorf("delete photo: %w", err)
		}
	case change.Collection == diff.CollectionPhotoComments:
		if err := e.store.UpdatePhoto(ctx, userID, photo.ID, photo.CommentsPatch()); err != nil {
			return Result{}, fmt.Errorf("update photo comments: %w", err)
		}
	default:
		if err := e.store.UpdatePhoto(ctx, userID, photo.ID, photo.FieldsPatch()); err != nil {
			return Result{}, fmt.Errorf("update photo: %w", err)
		}
	}
	return res, nil
}

func (e *Executor) exercise(ctx context.Context, userID string, change diff.Change, res Result) (Result, error) {
	if change.Exercise == nil {
		return Result{}, errors.New("exercise change without payload")
	}

	switch change.Kind {
	case diff.KindCreated:
		created, err := e.store.CreateExerciseDefinition(ctx, userID, *change.Exercise)
		if err != nil {
			return Result{}, fmt.Errorf("create exercise definition: %w", err)
		}
		res.Exercise = &created
		return res, nil
	case diff.KindDeleted:
		if err := e.store.DeleteExerciseDefinition(ctx, userID, *change.Exercise); err != nil {
			return Result{}, fmt.Errorf("delete exercise definition: %w", err)
		}
		return res, nil
	default:
		return Result{}, fmt.Errorf("exercise definition %s: %w", change.Kind, ErrNotSyncable)
	}
}

func (e *Executor) template(ctx context.Context, userID string, change diff.Change, res Result) (Result, error) {
	tpl := change.Template
	if tpl == nil {
		return Result{}, errors.New("template change without payload")
	}

	switch change.Kind {
	case diff.KindCreated:
		created, err := e.store.CreateProgramTemplate(ctx, userID, *tpl)
		if err != nil {
			return Result{}, fmt.Errorf("create program template: %w", err)
		}
		res.Template = &created
	case diff.KindUpdated:
		// only the creation of a not yet synced template reaches the remote store
		if tpl.ID == "" {
			return Result{}, fmt.Errorf("program template update without id: %w", ErrNotSyncable)
		}
		if err := e.store.UpdateProgramTemplate(ctx, userID, *tpl); err != nil {
			return Result{}, fmt.Errorf("update program template: %w", err)
		}
	case diff.KindDeleted:
		if err := e.store.DeleteProgramTemplate(ctx, userID, *tpl); err != nil {
			return Result{}, fmt.Errorf("delete program template: %w", err)
		}
	}
	return res, nil
}
