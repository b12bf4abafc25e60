package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/remote"
	"github.com/2beens/liftsync/internal/telemetry/tracing"
	"github.com/2beens/liftsync/pkg"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

// CreateWorkout inserts the workout with its exercises and sets in one
// transaction. A workout already stored under the same local key is returned
// instead of inserting it twice.
func (r *Repo) CreateWorkout(ctx context.Context, userID string, workout model.WorkoutRecord) (_ model.WorkoutRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("exercises", len(workout.Exercises)))

	if workout.Name == "" || workout.StartedAt.IsZero() {
		return model.WorkoutRecord{}, fmt.Errorf("workout without name or start time: %w", remote.ErrInvalidInput)
	}

	id, err := r.insertWorkout(ctx, userID, workout)
	if pkg.IsUniqueViolationError(err) {
		id, err = r.workoutIDByLocalKey(ctx, userID, workout.LocalKey)
	}
	if err != nil {
		return model.WorkoutRecord{}, err
	}

	created := workout.Clone()
	created.ID = strconv.FormatInt(id, 10)
	return created, nil
}

func (r *Repo) insertWorkout(ctx context.Context, userID string, workout model.WorkoutRecord) (_ int64, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var workoutID int64
	err = tx.QueryRow(
		ctx,
		`
			INSERT INTO workout
			    (user_id, local_key, name, started_at, duration_seconds)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`,
		userID,
		workout.LocalKey,
		workout.Name,
		workout.StartedAt,
		int64(workout.Duration.Seconds()),
	).Scan(&workoutID)
	if err != nil {
		return 0, fmt.Errorf("insert workout: %w", err)
	}

	for i, exercise := range workout.Exercises {
		var exerciseID int64
		err = tx.QueryRow(
			ctx,
			`
				INSERT INTO workout_exercise
				    (workout_id, position, name, muscle_group)
				VALUES ($1, $2, $3, $4)
				RETURNING id
			`,
			workoutID, i, exercise.Name, exercise.MuscleGroup,
		).Scan(&exerciseID)
		if err != nil {
			return 0, fmt.Errorf("insert workout exercise %d: %w", i, err)
		}

		// sets are sent in one round trip
		batch := &pgx.Batch{}
		for j, set := range exercise.Sets {
			batch.Queue(
				`
					INSERT INTO workout_set
					    (exercise_id, position, weight, reps, rpe, completed, set_type)
					VALUES ($1, $2, $3, $4, $5, $6, $7)
				`,
				exerciseID, j, set.Weight, set.Reps, set.RPE, set.Completed, set.SetType,
			)
		}
		if batch.Len() == 0 {
			continue
		}
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("insert sets of exercise %d: %w", i, err)
		}
	}

	return workoutID, nil
}

func (r *Repo) workoutIDByLocalKey(ctx context.Context, userID, localKey string) (int64, error) {
	var id int64
	err := r.db.QueryRow(
		ctx,
		`SELECT id FROM workout WHERE user_id = $1 AND local_key = $2`,
		userID, localKey,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("workout by local key [query row]: %w", err)
	}
	return id, nil
}

// DeleteWorkout removes the workout identified by its start time and name;
// exercises and sets go with it.
func (r *Repo) DeleteWorkout(ctx context.Context, userID string, startedAt time.Time, name string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout WHERE user_id = $1 AND started_at = $2 AND name = $3`,
		userID, startedAt, name,
	)
	if err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return remote.ErrNotFound
	}
	return nil
}

func (r *Repo) listWorkouts(ctx context.Context, userID string) ([]model.WorkoutRecord, error) {
	rows, err := r.db.Query(
		ctx,
		`
			SELECT
			    w.id, w.local_key, w.name, w.started_at, w.duration_seconds,
			    e.id, e.name, e.muscle_group,
			    s.weight, s.reps, s.rpe, s.completed, s.set_type
			FROM workout w
			LEFT JOIN workout_exercise e ON e.workout_id = w.id
			LEFT JOIN workout_set s ON s.exercise_id = e.id
			WHERE w.user_id = $1
			ORDER BY w.id, e.position, s.position
		`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("workouts [query]: %w", err)
	}
	defer rows.Close()

	var (
		workouts       []model.WorkoutRecord
		lastWorkoutID  int64 = -1
		lastExerciseID int64 = -1
	)
	for rows.Next() {
		var (
			workoutID       int64
			workout         model.WorkoutRecord
			durationSeconds int64
			exerciseID      *int64
			exerciseName    *string
			muscleGroup     *string
			weight          *float64
			reps            *int
			rpe             *float64
			completed       *bool
			setType         *string
		)
		if err := rows.Scan(
			&workoutID, &workout.LocalKey, &workout.Name, &workout.StartedAt, &durationSeconds,
			&exerciseID, &exerciseName, &muscleGroup,
			&weight, &reps, &rpe, &completed, &setType,
		); err != nil {
			return nil, fmt.Errorf("workouts [rows scan]: %w", err)
		}

		if workoutID != lastWorkoutID {
			workout.ID = strconv.FormatInt(workoutID, 10)
			workout.StartedAt = workout.StartedAt.UTC()
			workout.Duration = time.Duration(durationSeconds) * time.Second
			workouts = append(workouts, workout)
			lastWorkoutID = workoutID
			lastExerciseID = -1
		}
		if exerciseID == nil {
			continue
		}

		current := &workouts[len(workouts)-1]
		if *exerciseID != lastExerciseID {
			current.Exercises = append(current.Exercises, model.ExerciseEntry{
				Name:        *exerciseName,
				MuscleGroup: *muscleGroup,
			})
			lastExerciseID = *exerciseID
		}
		if weight == nil {
			continue
		}

		exercise := &current.Exercises[len(current.Exercises)-1]
		exercise.Sets = append(exercise.Sets, model.SetEntry{
			Weight:    *weight,
			Reps:      *reps,
			RPE:       *rpe,
			Completed: *completed,
			SetType:   *setType,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workouts [rows error]: %w", err)
	}

	return workouts, nil
}
