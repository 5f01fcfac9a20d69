package services

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mace-backend/config"
	"mace-backend/utils"
)

const driveFolderMime = "application/vnd.google-apps.folder"

// DriveFileStore keeps attachments in a (shared) Google Drive folder tree.
// Files inherit the sharing settings of the parent folder.
type DriveFileStore struct {
	files    *drive.Service
	parentID string
}

func NewDriveFileStore(ctx context.Context, cfg *config.Config) (*DriveFileStore, error) {
	ts, err := GoogleTokenSource(ctx, cfg.GoogleServiceAccountJSON, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrConfiguration, err)
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("%w: drive client: %v", utils.ErrConfiguration, err)
	}
	return &DriveFileStore{files: svc, parentID: cfg.DriveParentFolderID}, nil
}

func (d *DriveFileStore) CreateFolder(ctx context.Context, name string) (Folder, error) {
	meta := &drive.File{Name: name, MimeType: driveFolderMime}
	if d.parentID != "" {
		meta.Parents = []string{d.parentID}
	}
	f, err := d.files.Files.Create(meta).
		SupportsAllDrives(true).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return Folder{}, fmt.Errorf("%w: create drive folder %s: %v", utils.ErrUpstream, name, err)
	}
	link := f.WebViewLink
	if link == "" {
		link = "https://drive.google.com/drive/folders/" + f.Id
	}
	return Folder{ID: f.Id, Link: link}, nil
}

func (d *DriveFileStore) Upload(ctx context.Context, folder Folder, name, contentType string, r io.Reader) (string, error) {
	meta := &drive.File{Name: name}
	if folder.ID != "" {
		meta.Parents = []string{folder.ID}
	}
	var opts []googleapi.MediaOption
	if contentType != "" {
		opts = append(opts, googleapi.ContentType(contentType))
	}
	f, err := d.files.Files.Create(meta).
		Media(r, opts...).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%w: upload %s to drive: %v", utils.ErrUpstream, name, err)
	}
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", f.Id), nil
}
