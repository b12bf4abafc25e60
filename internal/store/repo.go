package store

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"strconv"

	"github.com/2beens/liftsync/internal/imagestore"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/remote"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var Schema string

const feedLimit = 50

var _ remote.Store = (*Repo)(nil)

// Repo is the Postgres implementation of the remote store.
type Repo struct {
	db     *pgxpool.Pool
	images imagestore.Store
}

func NewRepo(db *pgxpool.Pool, images imagestore.Store) *Repo {
	return &Repo{
		db:     db,
		images: images,
	}
}

// Migrate creates the tables if they do not exist yet.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id %q: %w", id, remote.ErrInvalidInput)
	}
	return n, nil
}

// uploadRawImage uploads ref when it carries inline image data and returns
// the hosted URL; any other ref is returned as is.
func (r *Repo) uploadRawImage(ctx context.Context, userID, ref string) (string, error) {
	if !model.IsRawImage(ref) {
		return ref, nil
	}
	data, mimeType, err := model.DecodeImage(ref)
	if err != nil {
		return "", fmt.Errorf("decode image: %w: %w", remote.ErrInvalidInput, err)
	}
	return r.images.Put(ctx, userID, data, mimeType)
}

func (r *Repo) uploadImage(ctx context.Context, userID string, data []byte) (string, error) {
	return r.images.Put(ctx, userID, data, http.DetectContentType(data))
}
