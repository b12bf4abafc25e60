package diff

import (
	"fmt"

	"github.com/2beens/liftsync/internal/model"
)

// Collection names an independently synchronized part of the app state.
type Collection string

const (
	CollectionProfile          Collection = "profile"
	CollectionHistory          Collection = "history"
	CollectionProgressPhotos   Collection = "progressPhotos"
	CollectionPhotoComments    Collection = "photoComments"
	CollectionCustomExercises  Collection = "customExercises"
	CollectionProgramTemplates Collection = "programTemplates"
)

func (c Collection) String() string {
	return string(c)
}

// Kind can be one of:
//   - created (element appended at the tail)
//   - updated (same length, content changed)
//   - deleted (element removed, found by identity)
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

func (k Kind) String() string {
	return string(k)
}

// Identity is what is known about an element's identity when the change is detected.
type Identity struct {
	ID          string `json:"id,omitempty"`
	LocalKey    string `json:"localKey,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// Change is a single classified difference between two snapshots.
// Exactly one of the payload pointers is set, matching Collection.
type Change struct {
	Collection Collection
	Kind       Kind
	// Index is the element position in the next snapshot for created/updated,
	// and in the previous snapshot for deleted changes.
	Index    int
	Identity Identity

	Profile  *model.Profile
	Workout  *model.WorkoutRecord
	Photo    *model.PhotoRecord
	Exercise *model.ExerciseDefinition
	Template *model.ProgramTemplate
}

func (c Change) String() string {
	return fmt.Sprintf("%s/%s[%d] (%s)", c.Collection, c.Kind, c.Index, c.Identity.Fingerprint)
}

// WorkoutChange and the other constructors below detach the payload from the
// caller's state by cloning it.
func WorkoutChange(kind Kind, index int, w model.WorkoutRecord) Change {
	w = w.Clone()
	return Change{
		Collection: CollectionHistory,
		Kind:       kind,
		Index:      index,
		Identity:   Identity{ID: w.ID, LocalKey: w.LocalKey, Fingerprint: w.Fingerprint()},
		Workout:    &w,
	}
}

func PhotoChange(collection Collection, kind Kind, index int, p model.PhotoRecord) Change {
	p = p.Clone()
	return Change{
		Collection: collection,
		Kind:       kind,
		Index:      index,
		Identity:   Identity{ID: p.ID, LocalKey: p.LocalKey, Fingerprint: p.Fingerprint()},
		Photo:      &p,
	}
}

func ExerciseChange(kind Kind, index int, e model.ExerciseDefinition) Change {
	return Change{
		Collection: CollectionCustomExercises,
		Kind:       kind,
		Index:      index,
		Identity:   Identity{ID: e.ID, LocalKey: e.LocalKey, Fingerprint: e.Fingerprint()},
		Exercise:   &e,
	}
}

func TemplateChange(kind Kind, index int, t model.ProgramTemplate) Change {
	t = t.Clone()
	return Change{
		Collection: CollectionProgramTemplates,
		Kind:       kind,
		Index:      index,
		Identity:   Identity{ID: t.ID, LocalKey: t.LocalKey, Fingerprint: t.Fingerprint()},
		Template:   &t,
	}
}

func ProfileChange(p model.Profile) Change {
	return Change{
		Collection: CollectionProfile,
		Kind:       KindUpdated,
		Identity:   Identity{ID: p.UserID, Fingerprint: "profile:" + p.UserID},
		Profile:    &p,
	}
}
