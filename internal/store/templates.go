package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/remote"
	"github.com/2beens/liftsync/internal/telemetry/tracing"
	"github.com/2beens/liftsync/pkg"
)

func marshalWeeks(weeks []model.ProgramWeek) ([]byte, error) {
	if weeks == nil {
		weeks = []model.ProgramWeek{}
	}
	weeksJson, err := json.Marshal(weeks)
	if err != nil {
		return nil, fmt.Errorf("marshal weeks: %w", err)
	}
	return weeksJson, nil
}

func (r *Repo) CreateProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) (_ model.ProgramTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.program_templates.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if template.Name == "" {
		return model.ProgramTemplate{}, fmt.Errorf("program template without name: %w", remote.ErrInvalidInput)
	}
	weeksJson, err := marshalWeeks(template.Weeks)
	if err != nil {
		return model.ProgramTemplate{}, err
	}

	var id int64
	err = r.db.QueryRow(
		ctx,
		`
			INSERT INTO program_template
			    (user_id, local_key, name, weeks)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`,
		userID, template.LocalKey, template.Name, weeksJson,
	).Scan(&id)
	if pkg.IsUniqueViolationError(err) {
		err = r.db.QueryRow(
			ctx,
			`SELECT id FROM program_template WHERE user_id = $1 AND local_key = $2`,
			userID, template.LocalKey,
		).Scan(&id)
	}
	if err != nil {
		return model.ProgramTemplate{}, fmt.Errorf("insert program template: %w", err)
	}

	created := template.Clone()
	created.ID = strconv.FormatInt(id, 10)
	return created, nil
}

func (r *Repo) UpdateProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.program_templates.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	id, err := parseID(template.ID)
	if err != nil {
		return err
	}
	weeksJson, err := marshalWeeks(template.Weeks)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE program_template SET name = $3, weeks = $4 WHERE user_id = $1 AND id = $2`,
		userID, id, template.Name, weeksJson,
	)
	if err != nil {
		return fmt.Errorf("update program template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return remote.ErrNotFound
	}
	return nil
}

// DeleteProgramTemplate deletes by ID when known, then by local key. The name
// fallback removes at most the newest matching row.
func (r *Repo) DeleteProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.program_templates.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var (
		query string
		args  []any
	)
	if template.ID != "" {
		id, err := parseID(template.ID)
		if err != nil {
			return err
		}
		query = `DELETE FROM program_template WHERE user_id = $1 AND id = $2`
		args = []any{userID, id}
	} else if template.LocalKey != "" {
		query = `DELETE FROM program_template WHERE user_id = $1 AND local_key = $2`
		args = []any{userID, template.LocalKey}
	} else {
		query = `
			DELETE FROM program_template
			WHERE id = (
			    SELECT id FROM program_template
			    WHERE user_id = $1 AND name = $2
			    ORDER BY id DESC
			    LIMIT 1
			)
		`
		args = []any{userID, template.Name}
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete program template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return remote.ErrNotFound
	}
	return nil
}

func (r *Repo) listProgramTemplates(ctx context.Context, userID string) ([]model.ProgramTemplate, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, local_key, name, weeks FROM program_template WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("program templates [query]: %w", err)
	}
	defer rows.Close()

	var templates []model.ProgramTemplate
	for rows.Next() {
		var (
			template  model.ProgramTemplate
			id        int64
			weeksJson []byte
		)
		if err := rows.Scan(&id, &template.LocalKey, &template.Name, &weeksJson); err != nil {
			return nil, fmt.Errorf("program templates [rows scan]: %w", err)
		}
		if err := json.Unmarshal(weeksJson, &template.Weeks); err != nil {
			return nil, fmt.Errorf("program template %d weeks: %w", id, err)
		}
		template.ID = strconv.FormatInt(id, 10)
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("program templates [rows error]: %w", err)
	}

	return templates, nil
}
