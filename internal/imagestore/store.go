package imagestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrImageNotFound = errors.New("image not found")
	ErrForeignURL    = errors.New("image url not hosted by this store")
)

// Store hosts raw images and hands back the URL they are served from.
type Store interface {
	Put(ctx context.Context, userID string, data []byte, mimeType string) (url string, err error)
	Delete(ctx context.Context, url string) error
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/gif":  ".gif",
}

// newImageName builds a unique, user-prefixed file name for an upload.
func newImageName(userID, mimeType string) string {
	ext, ok := extensions[strings.ToLower(mimeType)]
	if !ok {
		ext = ".img"
	}
	return fmt.Sprintf("%s-%s%s", userID, uuid.NewString(), ext)
}

func mimeTypeOf(name string) string {
	for mimeType, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return mimeType
		}
	}
	return "application/octet-stream"
}
