package reconcile

import (
	"github.com/2beens/liftsync/internal/diff"
	"github.com/2beens/liftsync/internal/dispatch"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/state"
	"github.com/2beens/liftsync/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	strategyTail = "tail"
	strategyKey  = "key"
)

// Merger patches server-assigned identifiers and canonical fields back into
// the state held by the container at the time the result arrives.
// Patches are applied silently, so they are never diffed into new remote calls.
type Merger struct {
	container *state.Container
	metrics   *metrics.Manager
}

func NewMerger(container *state.Container, metricsManager *metrics.Manager) *Merger {
	return &Merger{
		container: container,
		metrics:   metricsManager,
	}
}

// Reconcile patches the current tail element of the result's collection.
//
// The tail is resolved when the result arrives, not when the change was
// diffed: if another element was appended to the same collection in the
// meantime, that element receives the patch.
func (m *Merger) Reconcile(res dispatch.Result) {
	if !res.NeedsMerge() {
		return
	}

	patched := false
	m.container.ApplySilent(func(s model.AppState) model.AppState {
		patched = patch(&s, res, func(n int, _ func(i int) string) int {
			return n - 1
		})
		return s
	})
	m.observe(res, strategyTail, patched)
}

// MergeByKey patches the element whose LocalKey matches the result's LocalKey.
// It reports whether such an element still exists.
func (m *Merger) MergeByKey(res dispatch.Result) bool {
	if !res.NeedsMerge() {
		return false
	}
	if res.LocalKey == "" && res.Collection != diff.CollectionProfile {
		log.Warnf("reconcile: %s result without local key, not merged", res.Collection)
		return false
	}

	patched := false
	m.container.ApplySilent(func(s model.AppState) model.AppState {
		patched = patch(&s, res, func(n int, localKeyAt func(i int) string) int {
			for i := 0; i < n; i++ {
				if localKeyAt(i) == res.LocalKey {
					return i
				}
			}
			return -1
		})
		return s
	})
	m.observe(res, strategyKey, patched)
	return patched
}

func (m *Merger) observe(res dispatch.Result, strategy string, patched bool) {
	if !patched {
		log.Warnf("reconcile [%s]: no %s element to patch", strategy, res.Collection)
		return
	}
	log.Tracef("reconcile [%s]: %s patched", strategy, res.Collection)
	m.metrics.CounterReconciled.With(prometheus.Labels{
		"collection": res.Collection.String(),
		"strategy":   strategy,
	}).Inc()
}

// locator picks the index to patch in a collection of length n; -1 means none.
type locator func(n int, localKeyAt func(i int) string) int

func patch(s *model.AppState, res dispatch.Result, locate locator) bool {
	switch res.Collection {
	case diff.CollectionProfile:
		if res.Profile == nil {
			return false
		}
		patchProfile(&s.Profile, *res.Profile)
		return true

	case diff.CollectionHistory:
		if res.Workout == nil {
			return false
		}
		i := locate(len(s.History), func(i int) string { return s.History[i].LocalKey })
		if i < 0 {
			return false
		}
		s.History[i].ID = res.Workout.ID
		return true

	case diff.CollectionProgressPhotos:
		if res.Photo == nil {
			return false
		}
		i := locate(len(s.ProgressPhotos), func(i int) string { return s.ProgressPhotos[i].LocalKey })
		if i < 0 {
			return false
		}
		s.ProgressPhotos[i].ID = res.Photo.ID
		if res.Photo.ImageRef != "" {
			s.ProgressPhotos[i].ImageRef = res.Photo.ImageRef
		}
		return true

	case diff.CollectionCustomExercises:
		if res.Exercise == nil {
			return false
		}
		i := locate(len(s.CustomExercises), func(i int) string { return s.CustomExercises[i].LocalKey })
		if i < 0 {
			return false
		}
		s.CustomExercises[i].ID = res.Exercise.ID
		return true

	case diff.CollectionProgramTemplates:
		if res.Template == nil {
			return false
		}
		i := locate(len(s.ProgramTemplates), func(i int) string { return s.ProgramTemplates[i].LocalKey })
		if i < 0 {
			return false
		}
		s.ProgramTemplates[i].ID = res.Template.ID
		return true
	}
	return false
}

// patchProfile only swaps raw image data for the hosted URL; a picture the
// user changed again after the upsert was fired is left alone.
func patchProfile(current *model.Profile, upserted model.Profile) {
	if model.IsRawImage(current.ProfilePicture) && !model.IsRawImage(upserted.ProfilePicture) {
		current.ProfilePicture = upserted.ProfilePicture
	}
	if model.IsRawImage(current.CoverPicture) && !model.IsRawImage(upserted.CoverPicture) {
		current.CoverPicture = upserted.CoverPicture
	}
}
