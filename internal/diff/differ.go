package diff

import (
	"github.com/2beens/liftsync/internal/model"

	log "github.com/sirupsen/logrus"
)

// Diff compares two consecutive snapshots and classifies the change of every
// synchronized collection. It is pure: no I/O, no mutation of its inputs.
//
// Friends, friend requests, the friends feed and the active workout are
// inbound-only and never produce changes.
func Diff(prev, next model.AppState) []Change {
	var changes []Change

	if prev.Profile != next.Profile {
		changes = append(changes, ProfileChange(next.Profile))
	}

	changes = append(changes, diffCollection(
		prev.History, next.History,
		model.WorkoutRecord.Fingerprint,
		model.WorkoutRecord.Equal,
		WorkoutChange,
	)...)

	changes = append(changes, diffPhotos(prev.ProgressPhotos, next.ProgressPhotos)...)

	changes = append(changes, diffCollection(
		prev.CustomExercises, next.CustomExercises,
		model.ExerciseDefinition.Fingerprint,
		func(a, b model.ExerciseDefinition) bool { return a == b },
		ExerciseChange,
	)...)

	changes = append(changes, diffCollection(
		prev.ProgramTemplates, next.ProgramTemplates,
		model.ProgramTemplate.Fingerprint,
		model.ProgramTemplate.Equal,
		TemplateChange,
	)...)

	return changes
}

func diffCollection[T any](
	prev, next []T,
	fingerprint func(T) string,
	equal func(a, b T) bool,
	toChange func(kind Kind, index int, elem T) Change,
) []Change {
	switch {
	case len(next) > len(prev):
		changes := make([]Change, 0, len(next)-len(prev))
		for i := len(prev); i < len(next); i++ {
			changes = append(changes, toChange(KindCreated, i, next[i]))
		}
		return changes
	case len(next) < len(prev):
		idx, ok := removedIndex(prev, next, fingerprint)
		if !ok {
			return nil
		}
		return []Change{toChange(KindDeleted, idx, prev[idx])}
	default:
		var changes []Change
		for i := range next {
			if !equal(prev[i], next[i]) {
				changes = append(changes, toChange(KindUpdated, i, next[i]))
			}
		}
		return changes
	}
}

func diffPhotos(prev, next []model.PhotoRecord) []Change {
	if len(prev) != len(next) {
		return diffCollection(
			prev, next,
			model.PhotoRecord.Fingerprint,
			nil, // not used for length changes
			func(kind Kind, index int, p model.PhotoRecord) Change {
				return PhotoChange(CollectionProgressPhotos, kind, index, p)
			},
		)
	}

	var changes []Change
	for i := range next {
		if !prev[i].FieldsEqual(next[i]) {
			changes = append(changes, PhotoChange(CollectionProgressPhotos, KindUpdated, i, next[i]))
		}
		if !prev[i].CommentsEqual(next[i]) {
			changes = append(changes, PhotoChange(CollectionPhotoComments, KindUpdated, i, next[i]))
		}
	}
	return changes
}

// removedIndex finds the single element of prev whose fingerprint is not
// accounted for in next. Fingerprints are matched as a multiset, so duplicates
// are handled. Zero or several unmatched elements make the removal ambiguous.
func removedIndex[T any](prev, next []T, fingerprint func(T) string) (int, bool) {
	remaining := make(map[string]int, len(next))
	for _, e := range next {
		remaining[fingerprint(e)]++
	}

	removed := -1
	for i, e := range prev {
		fp := fingerprint(e)
		if remaining[fp] > 0 {
			remaining[fp]--
			continue
		}
		if removed != -1 {
			log.Debugf("diff: ambiguous removal, candidates at [%d] and [%d], dropping", removed, i)
			return -1, false
		}
		removed = i
	}

	if removed == -1 {
		log.Debugln("diff: removal without an unmatched element, dropping")
		return -1, false
	}
	return removed, true
}
