package model

import (
	"slices"
	"time"
)

type WorkoutRecord struct {
	ID        string          `json:"id,omitempty"`
	LocalKey  string          `json:"localKey,omitempty"`
	Name      string          `json:"name"`
	StartedAt time.Time       `json:"startedAt"`
	Duration  time.Duration   `json:"duration"`
	Exercises []ExerciseEntry `json:"exercises"`
}

type ExerciseEntry struct {
	Name        string     `json:"name"`
	MuscleGroup string     `json:"muscleGroup"`
	Sets        []SetEntry `json:"sets"`
}

// SetEntry is a single logged set. SetType is an optional tag, e.g. "warmup" or "drop".
type SetEntry struct {
	Weight    float64 `json:"weight"`
	Reps      int     `json:"reps"`
	RPE       float64 `json:"rpe"`
	Completed bool    `json:"completed"`
	SetType   string  `json:"setType,omitempty"`
}

// Fingerprint identifies a workout before (and after) it has a server ID:
// workouts are looked up remotely by start time and name.
func (w WorkoutRecord) Fingerprint() string {
	return w.StartedAt.UTC().Format(time.RFC3339Nano) + "|" + w.Name
}

func (w WorkoutRecord) Equal(o WorkoutRecord) bool {
	return w.ID == o.ID &&
		w.LocalKey == o.LocalKey &&
		w.Name == o.Name &&
		w.StartedAt.Equal(o.StartedAt) &&
		w.Duration == o.Duration &&
		slices.EqualFunc(w.Exercises, o.Exercises, func(a, b ExerciseEntry) bool {
			return a.Name == b.Name && a.MuscleGroup == b.MuscleGroup && slices.Equal(a.Sets, b.Sets)
		})
}

func (w WorkoutRecord) Clone() WorkoutRecord {
	c := w
	c.Exercises = slices.Clone(w.Exercises)
	for i := range c.Exercises {
		c.Exercises[i].Sets = slices.Clone(c.Exercises[i].Sets)
	}
	return c
}

// TotalVolume is the sum of weight x reps over completed sets.
func (w WorkoutRecord) TotalVolume() float64 {
	var volume float64
	for _, e := range w.Exercises {
		for _, s := range e.Sets {
			if s.Completed {
				volume += s.Weight * float64(s.Reps)
			}
		}
	}
	return volume
}
