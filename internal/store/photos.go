package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/2beens/liftsync/internal/imagestore"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/remote"
	"github.com/2beens/liftsync/internal/telemetry/tracing"
	"github.com/2beens/liftsync/pkg"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// CreatePhoto uploads image (when given) and inserts the photo row. Without
// an image the meta ImageRef must already be a hosted URL.
func (r *Repo) CreatePhoto(ctx context.Context, userID string, image []byte, meta model.PhotoRecord) (_ model.PhotoRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.photos.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if existing, found, err := r.photoByLocalKey(ctx, userID, meta.LocalKey); err != nil {
		return model.PhotoRecord{}, err
	} else if found {
		return existing, nil
	}

	created := meta.Clone()
	uploaded := false
	switch {
	case image != nil:
		created.ImageRef, err = r.uploadImage(ctx, userID, image)
		if err != nil {
			return model.PhotoRecord{}, fmt.Errorf("upload photo: %w", err)
		}
		uploaded = true
	case model.IsRawImage(created.ImageRef):
		created.ImageRef, err = r.uploadRawImage(ctx, userID, created.ImageRef)
		if err != nil {
			return model.PhotoRecord{}, fmt.Errorf("upload photo: %w", err)
		}
		uploaded = true
	case created.ImageRef == "":
		return model.PhotoRecord{}, fmt.Errorf("photo without image: %w", remote.ErrInvalidInput)
	}

	commentsJson, err := marshalComments(created.Comments)
	if err != nil {
		return model.PhotoRecord{}, err
	}

	var id int64
	err = r.db.QueryRow(
		ctx,
		`
			INSERT INTO progress_photo
			    (user_id, local_key, image_url, taken_at, caption, weight, pump_score, public, likes, comments)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`,
		userID,
		created.LocalKey,
		created.ImageRef,
		created.TakenAt,
		created.Caption,
		created.Weight,
		created.PumpScore,
		created.Public,
		created.Likes,
		commentsJson,
	).Scan(&id)
	if err != nil {
		err = fmt.Errorf("insert photo: %w", err)
		if uploaded {
			// do not leave the uploaded image behind
			err = multierr.Append(err, r.images.Delete(ctx, created.ImageRef))
		}
		if pkg.IsUniqueViolationError(err) {
			if existing, found, lookupErr := r.photoByLocalKey(ctx, userID, meta.LocalKey); lookupErr == nil && found {
				return existing, nil
			}
		}
		return model.PhotoRecord{}, err
	}

	created.ID = strconv.FormatInt(id, 10)
	return created, nil
}

func (r *Repo) photoByLocalKey(ctx context.Context, userID, localKey string) (model.PhotoRecord, bool, error) {
	if localKey == "" {
		return model.PhotoRecord{}, false, nil
	}
	photos, err := r.queryPhotos(ctx, `WHERE user_id = $1 AND local_key = $2`, userID, localKey)
	if err != nil {
		return model.PhotoRecord{}, false, err
	}
	if len(photos) == 0 {
		return model.PhotoRecord{}, false, nil
	}
	return photos[0], true, nil
}

// UpdatePhoto applies the non-nil fields of patch.
func (r *Repo) UpdatePhoto(ctx context.Context, userID, photoID string, patch model.PhotoPatch) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.photos.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	id, err := parseID(photoID)
	if err != nil {
		return err
	}

	args := []any{userID, id}
	var sets []string
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Caption != nil {
		add("caption", *patch.Caption)
	}
	if patch.Weight != nil {
		add("weight", *patch.Weight)
	}
	if patch.PumpScore != nil {
		add("pump_score", *patch.PumpScore)
	}
	if patch.Public != nil {
		add("public", *patch.Public)
	}
	if patch.Comments != nil {
		commentsJson, err := marshalComments(*patch.Comments)
		if err != nil {
			return err
		}
		add("comments", commentsJson)
	}
	if len(sets) == 0 {
		log.Debugf("empty patch for photo %s, nothing to update", photoID)
		return nil
	}

	tag, err := r.db.Exec(
		ctx,
		fmt.Sprintf(`UPDATE progress_photo SET %s WHERE user_id = $1 AND id = $2`, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return fmt.Errorf("update photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return remote.ErrNotFound
	}
	return nil
}

// DeletePhoto removes the photo row, then the hosted image.
func (r *Repo) DeletePhoto(ctx context.Context, userID, photoID, imageURL string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.photos.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	id, err := parseID(photoID)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM progress_photo WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return remote.ErrNotFound
	}

	if imageURL == "" {
		return nil
	}
	if err := r.images.Delete(ctx, imageURL); err != nil {
		if errors.Is(err, imagestore.ErrImageNotFound) || errors.Is(err, imagestore.ErrForeignURL) {
			log.Warnf("photo %s deleted, image %s not removed: %s", photoID, imageURL, err)
			return nil
		}
		return fmt.Errorf("delete photo image: %w", err)
	}
	return nil
}

func (r *Repo) listPhotos(ctx context.Context, userID string) ([]model.PhotoRecord, error) {
	return r.queryPhotos(ctx, `WHERE user_id = $1`, userID)
}

func (r *Repo) queryPhotos(ctx context.Context, where string, args ...any) ([]model.PhotoRecord, error) {
	rows, err := r.db.Query(
		ctx,
		`
			SELECT
			    id, local_key, image_url, taken_at, caption, weight, pump_score, public, likes, comments
			FROM progress_photo
		`+where+`
			ORDER BY id
		`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("photos [query]: %w", err)
	}
	defer rows.Close()

	var photos []model.PhotoRecord
	for rows.Next() {
		var (
			photo        model.PhotoRecord
			id           int64
			commentsJson []byte
		)
		if err := rows.Scan(
			&id,
			&photo.LocalKey,
			&photo.ImageRef,
			&photo.TakenAt,
			&photo.Caption,
			&photo.Weight,
			&photo.PumpScore,
			&photo.Public,
			&photo.Likes,
			&commentsJson,
		); err != nil {
			return nil, fmt.Errorf("photos [rows scan]: %w", err)
		}
		photo.ID = strconv.FormatInt(id, 10)
		photo.TakenAt = photo.TakenAt.UTC()
		if err := json.Unmarshal(commentsJson, &photo.Comments); err != nil {
			return nil, fmt.Errorf("photo %d comments: %w", id, err)
		}
		if len(photo.Comments) == 0 {
			photo.Comments = nil
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("photos [rows error]: %w", err)
	}

	return photos, nil
}

func marshalComments(comments []model.Comment) ([]byte, error) {
	if comments == nil {
		comments = []model.Comment{}
	}
	commentsJson, err := json.Marshal(comments)
	if err != nil {
		return nil, fmt.Errorf("marshal comments: %w", err)
	}
	return commentsJson, nil
}
