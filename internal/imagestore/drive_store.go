package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/2beens/liftsync/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const driveDownloadURL = "https://drive.google.com/uc"

var _ Store = (*DriveStore)(nil)

// DriveStore uploads images into a Google Drive folder and shares them
// publicly for reading.
type DriveStore struct {
	service  *drive.Service
	folderID string
}

func NewDriveStore(ctx context.Context, credentialsJson []byte, folderName string) (*DriveStore, error) {
	// https://github.com/googleapis/google-api-go-client/blob/master/drive/v3/drive-gen.go
	driveService, err := drive.NewService(ctx, option.WithCredentialsJSON(credentialsJson))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}
	return NewDriveStoreWithService(ctx, driveService, folderName)
}

func NewDriveStoreWithService(ctx context.Context, driveService *drive.Service, folderName string) (*DriveStore, error) {
	folderQuery := fmt.Sprintf("mimeType = 'application/vnd.google-apps.folder' and trashed = false and name = '%s'", folderName)
	folders, err := driveService.
		Files.List().
		Q(folderQuery).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list folders: %w", err)
	}

	if len(folders.Files) > 0 {
		if len(folders.Files) > 1 {
			log.Warnf("found %d images folders named %s, will take the first one", len(folders.Files), folderName)
		}
		return &DriveStore{service: driveService, folderID: folders.Files[0].Id}, nil
	}

	log.Printf("images folder %s not found, will create it", folderName)
	folderMeta := &drive.File{
		Name:     folderName,
		MimeType: "application/vnd.google-apps.folder",
	}
	folder, err := driveService.
		Files.Create(folderMeta).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("create images folder: %w", err)
	}
	return &DriveStore{service: driveService, folderID: folder.Id}, nil
}

func (s *DriveStore) Put(ctx context.Context, userID string, data []byte, mimeType string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "imagestore.drive.put")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	fileMeta := &drive.File{
		Name:     newImageName(userID, mimeType),
		MimeType: mimeType,
		Parents:  []string{s.folderID},
	}
	file, err := s.service.
		Files.Create(fileMeta).
		Fields("id").
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	if _, err := s.service.Permissions.
		Create(file.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		Context(ctx).
		Do(); err != nil {
		return "", fmt.Errorf("share image %s: %w", file.Id, err)
	}

	return fmt.Sprintf("%s?id=%s", driveDownloadURL, url.QueryEscape(file.Id)), nil
}

func (s *DriveStore) Delete(ctx context.Context, imageURL string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "imagestore.drive.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	u, err := url.Parse(imageURL)
	if err != nil || u.Scheme+"://"+u.Host+u.Path != driveDownloadURL {
		return ErrForeignURL
	}
	fileID := u.Query().Get("id")
	if fileID == "" {
		return ErrForeignURL
	}

	if err := s.service.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return ErrImageNotFound
		}
		return fmt.Errorf("delete image %s: %w", fileID, err)
	}
	return nil
}
