package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
)

// UpsertProfile replaces the whole profile row. Raw profile and cover
// pictures are uploaded first and stored as hosted URLs.
func (r *Repo) UpsertProfile(ctx context.Context, userID string, profile model.Profile) (_ model.Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	profile.UserID = userID
	profile.ProfilePicture, err = r.uploadRawImage(ctx, userID, profile.ProfilePicture)
	if err != nil {
		return model.Profile{}, fmt.Errorf("upload profile picture: %w", err)
	}
	profile.CoverPicture, err = r.uploadRawImage(ctx, userID, profile.CoverPicture)
	if err != nil {
		return model.Profile{}, fmt.Errorf("upload cover picture: %w", err)
	}

	_, err = r.db.Exec(
		ctx,
		`
			INSERT INTO profile
			    (user_id, username, display_name, bio, units, theme, profile_picture, cover_picture, body_weight, private, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
			ON CONFLICT (user_id) DO UPDATE SET
			    username = EXCLUDED.username,
			    display_name = EXCLUDED.display_name,
			    bio = EXCLUDED.bio,
			    units = EXCLUDED.units,
			    theme = EXCLUDED.theme,
			    profile_picture = EXCLUDED.profile_picture,
			    cover_picture = EXCLUDED.cover_picture,
			    body_weight = EXCLUDED.body_weight,
			    private = EXCLUDED.private,
			    updated_at = now()
		`,
		profile.UserID,
		profile.Username,
		profile.DisplayName,
		profile.Bio,
		profile.Units,
		profile.Theme,
		profile.ProfilePicture,
		profile.CoverPicture,
		profile.BodyWeight,
		profile.Private,
	)
	if err != nil {
		return model.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}

	return profile, nil
}

func (r *Repo) getProfile(ctx context.Context, userID string) (model.Profile, error) {
	profile := model.Profile{UserID: userID}
	err := r.db.QueryRow(
		ctx,
		`
			SELECT
			    username, display_name, bio, units, theme, profile_picture, cover_picture, body_weight, private
			FROM profile
			WHERE user_id = $1
		`,
		userID,
	).Scan(
		&profile.Username,
		&profile.DisplayName,
		&profile.Bio,
		&profile.Units,
		&profile.Theme,
		&profile.ProfilePicture,
		&profile.CoverPicture,
		&profile.BodyWeight,
		&profile.Private,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// not created yet, the first upsert will do it
			return profile, nil
		}
		return model.Profile{}, fmt.Errorf("profile [query row]: %w", err)
	}
	return profile, nil
}
