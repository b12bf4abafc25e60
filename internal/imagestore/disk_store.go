package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/2beens/liftsync/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var _ Store = (*DiskStore)(nil)

// DiskStore keeps images in a flat directory; they are served by the API
// under <baseURL>/images/<name>.
type DiskStore struct {
	rootPath string
	baseURL  string
}

func NewDiskStore(rootPath, baseURL string) (*DiskStore, error) {
	if rootPath == "" {
		return nil, errors.New("root path cannot be empty")
	}
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	return &DiskStore{
		rootPath: rootPath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (ds *DiskStore) URLFor(name string) string {
	return fmt.Sprintf("%s/images/%s", ds.baseURL, name)
}

func (ds *DiskStore) Put(ctx context.Context, userID string, data []byte, mimeType string) (_ string, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "imagestore.disk.put")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	name := newImageName(userID, mimeType)
	span.SetAttributes(attribute.String("image.name", name), attribute.Int("image.size", len(data)))

	if err := os.WriteFile(filepath.Join(ds.rootPath, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image %s: %w", name, err)
	}

	log.Debugf("image %s saved [%d bytes]", name, len(data))
	return ds.URLFor(name), nil
}

// Open returns the stored image by name, together with its mime type.
func (ds *DiskStore) Open(ctx context.Context, name string) (_ io.ReadCloser, _ string, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "imagestore.disk.open")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, "", ErrImageNotFound
	}

	f, err := os.Open(filepath.Join(ds.rootPath, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrImageNotFound
		}
		return nil, "", fmt.Errorf("open image %s: %w", name, err)
	}
	return f, mimeTypeOf(name), nil
}

func (ds *DiskStore) Delete(ctx context.Context, url string) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "imagestore.disk.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	prefix := ds.baseURL + "/images/"
	if !strings.HasPrefix(url, prefix) {
		return ErrForeignURL
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || name != filepath.Base(name) {
		return ErrForeignURL
	}

	if err := os.Remove(filepath.Join(ds.rootPath, name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrImageNotFound
		}
		return fmt.Errorf("remove image %s: %w", name, err)
	}

	log.Debugf("image %s removed", name)
	return nil
}
