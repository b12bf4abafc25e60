package app

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/2beens/liftsync/internal/diff"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/outbox"
	"github.com/2beens/liftsync/internal/state"

	"github.com/google/uuid"
)

var (
	ErrNoSuchElement = errors.New("no element with that key")
	ErrInvalidInput  = errors.New("invalid input")
)

// Mutations is the intent API over the app state. Each intent changes local
// state right away and schedules exactly one remote operation.
//
// With an outbox the change is applied silently and the operation is queued
// under an idempotency key, which is returned. Without one (snapshot mode)
// the change goes through Container.Apply and the differ picks it up; the
// returned key is empty.
type Mutations struct {
	// serializes apply+enqueue, so queue order follows state order
	mutex     sync.Mutex
	container *state.Container
	outbox    *outbox.Outbox
}

func NewMutations(container *state.Container, ob *outbox.Outbox) *Mutations {
	return &Mutations{
		container: container,
		outbox:    ob,
	}
}

type build func(s *model.AppState) (diff.Change, error)

func (m *Mutations) commit(b build) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var (
		change diff.Change
		err    error
	)
	updater := func(s model.AppState) model.AppState {
		next := s.Clone()
		change, err = b(&next)
		if err != nil {
			return s
		}
		return next
	}

	if m.outbox == nil {
		m.container.Apply(updater)
		return "", err
	}

	m.container.ApplySilent(updater)
	if err != nil {
		return "", err
	}
	return m.outbox.Enqueue(change), nil
}

// matches reports whether an element with the given server ID and local key is
// addressed by key. Elements loaded from the remote store may lack a local key.
func matches(key, id, localKey string) bool {
	return key != "" && (key == id || key == localKey)
}

func newLocalKey(key string) string {
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func (m *Mutations) AddWorkout(w model.WorkoutRecord) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		return appendWorkout(s, w)
	})
}

func appendWorkout(s *model.AppState, w model.WorkoutRecord) (diff.Change, error) {
	if w.Name == "" || w.StartedAt.IsZero() {
		return diff.Change{}, fmt.Errorf("workout needs a name and a start time: %w", ErrInvalidInput)
	}
	w = w.Clone()
	w.LocalKey = newLocalKey(w.LocalKey)
	s.History = append(s.History, w)
	return diff.WorkoutChange(diff.KindCreated, len(s.History)-1, w), nil
}

// finishWorkout moves the active workout into history in a single transition.
func (m *Mutations) finishWorkout(finishedAt time.Time) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		if s.ActiveWorkout == nil {
			return diff.Change{}, ErrNoActiveWorkout
		}
		w := *s.ActiveWorkout
		if w.Duration == 0 && finishedAt.After(w.StartedAt) {
			w.Duration = finishedAt.Sub(w.StartedAt)
		}
		s.ActiveWorkout = nil
		return appendWorkout(s, w)
	})
}

func (m *Mutations) RemoveWorkout(key string) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		i := slices.IndexFunc(s.History, func(w model.WorkoutRecord) bool {
			return matches(key, w.ID, w.LocalKey)
		})
		if i < 0 {
			return diff.Change{}, fmt.Errorf("workout %s: %w", key, ErrNoSuchElement)
		}
		removed := s.History[i]
		s.History = slices.Delete(s.History, i, i+1)
		return diff.WorkoutChange(diff.KindDeleted, i, removed), nil
	})
}

// AddPhoto adds a progress photo. Its ImageRef is normally a raw data URI
// (see model.EncodeImage) that the remote store uploads.
func (m *Mutations) AddPhoto(p model.PhotoRecord) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		if p.ImageRef == "" {
			return diff.Change{}, fmt.Errorf("photo without image: %w", ErrInvalidInput)
		}
		p = p.Clone()
		p.LocalKey = newLocalKey(p.LocalKey)
		if p.TakenAt.IsZero() {
			p.TakenAt = time.Now().UTC()
		}
		s.ProgressPhotos = append(s.ProgressPhotos, p)
		return diff.PhotoChange(diff.CollectionProgressPhotos, diff.KindCreated, len(s.ProgressPhotos)-1, p), nil
	})
}

// UpdatePhoto applies the patch to the photo's own fields. Comments are
// changed with SetPhotoComments only.
func (m *Mutations) UpdatePhoto(key string, patch model.PhotoPatch) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		i, err := photoIndex(s, key)
		if err != nil {
			return diff.Change{}, err
		}
		p := &s.ProgressPhotos[i]
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
		return diff.PhotoChange(diff.CollectionProgressPhotos, diff.KindUpdated, i, *p), nil
	})
}

func (m *Mutations) SetPhotoComments(key string, comments []model.Comment) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		i, err := photoIndex(s, key)
		if err != nil {
			return diff.Change{}, err
		}
		s.ProgressPhotos[i].Comments = slices.Clone(comments)
		return diff.PhotoChange(diff.CollectionPhotoComments, diff.KindUpdated, i, s.ProgressPhotos[i]), nil
	})
}

func (m *Mutations) RemovePhoto(key string) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		i, err := photoIndex(s, key)
		if err != nil {
			return diff.Change{}, err
		}
		removed := s.ProgressPhotos[i]
		s.ProgressPhotos = slices.Delete(s.ProgressPhotos, i, i+1)
		return diff.PhotoChange(diff.CollectionProgressPhotos, diff.KindDeleted, i, removed), nil
	})
}

func photoIndex(s *model.AppState, key string) (int, error) {
	i := slices.IndexFunc(s.ProgressPhotos, func(p model.PhotoRecord) bool {
		return matches(key, p.ID, p.LocalKey)
	})
	if i < 0 {
		return -1, fmt.Errorf("photo %s: %w", key, ErrNoSuchElement)
	}
	return i, nil
}

func (m *Mutations) AddExercise(e model.ExerciseDefinition) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		if e.Name == "" {
			return diff.Change{}, fmt.Errorf("exercise without name: %w", ErrInvalidInput)
		}
		e.LocalKey = newLocalKey(e.LocalKey)
		s.CustomExercises = append(s.CustomExercises, e)
		return diff.ExerciseChange(diff.KindCreated, len(s.CustomExercises)-1, e), nil
	})
}

func (m *Mutations) RemoveExercise(key string) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		i := slices.IndexFunc(s.CustomExercises, func(e model.ExerciseDefinition) bool {
			return matches(key, e.ID, e.LocalKey)
		})
		if i < 0 {
			return diff.Change{}, fmt.Errorf("exercise %s: %w", key, ErrNoSuchElement)
		}
		removed := s.CustomExercises[i]
		s.CustomExercises = slices.Delete(s.CustomExercises, i, i+1)
		return diff.ExerciseChange(diff.KindDeleted, i, removed), nil
	})
}

func (m *Mutations) AddTemplate(t model.ProgramTemplate) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		if t.Name == "" {
			return diff.Change{}, fmt.Errorf("template without name: %w", ErrInvalidInput)
		}
		t = t.Clone()
		t.LocalKey = newLocalKey(t.LocalKey)
		s.ProgramTemplates = append(s.ProgramTemplates, t)
		return diff.TemplateChange(diff.KindCreated, len(s.ProgramTemplates)-1, t), nil
	})
}

// UpdateTemplate replaces the template addressed by t.ID (or t.LocalKey),
// keeping its identity.
func (m *Mutations) UpdateTemplate(t model.ProgramTemplate) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		i := slices.IndexFunc(s.ProgramTemplates, func(c model.ProgramTemplate) bool {
			return matches(t.ID, c.ID, c.LocalKey) || matches(t.LocalKey, c.ID, c.LocalKey)
		})
		if i < 0 {
			return diff.Change{}, fmt.Errorf("template %s: %w", t.Fingerprint(), ErrNoSuchElement)
		}
		t = t.Clone()
		t.ID = s.ProgramTemplates[i].ID
		t.LocalKey = s.ProgramTemplates[i].LocalKey
		s.ProgramTemplates[i] = t
		return diff.TemplateChange(diff.KindUpdated, i, t), nil
	})
}

func (m *Mutations) RemoveTemplate(key string) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		i := slices.IndexFunc(s.ProgramTemplates, func(t model.ProgramTemplate) bool {
			return matches(key, t.ID, t.LocalKey)
		})
		if i < 0 {
			return diff.Change{}, fmt.Errorf("template %s: %w", key, ErrNoSuchElement)
		}
		removed := s.ProgramTemplates[i]
		s.ProgramTemplates = slices.Delete(s.ProgramTemplates, i, i+1)
		return diff.TemplateChange(diff.KindDeleted, i, removed), nil
	})
}

// UpdateProfile replaces the whole profile. Pictures may be raw data URIs.
func (m *Mutations) UpdateProfile(p model.Profile) (string, error) {
	return m.commit(func(s *model.AppState) (diff.Change, error) {
		if p.UserID == "" {
			p.UserID = s.Profile.UserID
		}
		s.Profile = p
		return diff.ProfileChange(p), nil
	})
}
