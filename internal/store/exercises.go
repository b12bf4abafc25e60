package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/remote"
	"github.com/2beens/liftsync/internal/telemetry/tracing"
	"github.com/2beens/liftsync/pkg"
)

func (r *Repo) CreateExerciseDefinition(ctx context.Context, userID string, exercise model.ExerciseDefinition) (_ model.ExerciseDefinition, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercise_definitions.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if exercise.Name == "" {
		return model.ExerciseDefinition{}, fmt.Errorf("exercise definition without name: %w", remote.ErrInvalidInput)
	}

	var id int64
	err = r.db.QueryRow(
		ctx,
		`
			INSERT INTO exercise_definition
			    (user_id, local_key, name, muscle_group, subtype, instructions, equipment)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`,
		userID,
		exercise.LocalKey,
		exercise.Name,
		exercise.MuscleGroup,
		exercise.Subtype,
		exercise.Instructions,
		exercise.Equipment,
	).Scan(&id)
	if pkg.IsUniqueViolationError(err) {
		err = r.db.QueryRow(
			ctx,
			`SELECT id FROM exercise_definition WHERE user_id = $1 AND local_key = $2`,
			userID, exercise.LocalKey,
		).Scan(&id)
	}
	if err != nil {
		return model.ExerciseDefinition{}, fmt.Errorf("insert exercise definition: %w", err)
	}

	exercise.ID = strconv.FormatInt(id, 10)
	return exercise, nil
}

// DeleteExerciseDefinition deletes by ID when known, then by local key. The
// name and muscle group fallback removes at most the newest matching row.
func (r *Repo) DeleteExerciseDefinition(ctx context.Context, userID string, exercise model.ExerciseDefinition) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercise_definitions.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var (
		query string
		args  []any
	)
	if exercise.ID != "" {
		id, err := parseID(exercise.ID)
		if err != nil {
			return err
		}
		query = `DELETE FROM exercise_definition WHERE user_id = $1 AND id = $2`
		args = []any{userID, id}
	} else if exercise.LocalKey != "" {
		query = `DELETE FROM exercise_definition WHERE user_id = $1 AND local_key = $2`
		args = []any{userID, exercise.LocalKey}
	} else {
		query = `
			DELETE FROM exercise_definition
			WHERE id = (
			    SELECT id FROM exercise_definition
			    WHERE user_id = $1 AND name = $2 AND muscle_group = $3
			    ORDER BY id DESC
			    LIMIT 1
			)
		`
		args = []any{userID, exercise.Name, exercise.MuscleGroup}
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete exercise definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return remote.ErrNotFound
	}
	return nil
}

func (r *Repo) listExerciseDefinitions(ctx context.Context, userID string) ([]model.ExerciseDefinition, error) {
	rows, err := r.db.Query(
		ctx,
		`
			SELECT
			    id, local_key, name, muscle_group, subtype, instructions, equipment
			FROM exercise_definition
			WHERE user_id = $1
			ORDER BY id
		`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("exercise definitions [query]: %w", err)
	}
	defer rows.Close()

	var exercises []model.ExerciseDefinition
	for rows.Next() {
		var (
			exercise model.ExerciseDefinition
			id       int64
		)
		if err := rows.Scan(
			&id,
			&exercise.LocalKey,
			&exercise.Name,
			&exercise.MuscleGroup,
			&exercise.Subtype,
			&exercise.Instructions,
			&exercise.Equipment,
		); err != nil {
			return nil, fmt.Errorf("exercise definitions [rows scan]: %w", err)
		}
		exercise.ID = strconv.FormatInt(id, 10)
		exercises = append(exercises, exercise)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exercise definitions [rows error]: %w", err)
	}

	return exercises, nil
}
