package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"mace-backend/config"
	"mace-backend/utils"
)

// GCSFileStore keeps attachments under object prefixes of one bucket.
type GCSFileStore struct {
	client *storage.Client
	bucket string
}

// NewGCSFileStore prefers explicit credentials JSON and falls back to
// application default credentials.
func NewGCSFileStore(ctx context.Context, cfg *config.Config) (*GCSFileStore, error) {
	if cfg.GCSBucket == "" {
		return nil, fmt.Errorf("%w: GCS_BUCKET is required", utils.ErrConfiguration)
	}
	var opts []option.ClientOption
	if strings.TrimSpace(cfg.GCSCredentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.GCSCredentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: gcs client: %v", utils.ErrConfiguration, err)
	}
	return &GCSFileStore{client: client, bucket: cfg.GCSBucket}, nil
}

func (g *GCSFileStore) Close() error {
	return g.client.Close()
}

// CreateFolder only names a prefix; GCS has no real directories.
func (g *GCSFileStore) CreateFolder(ctx context.Context, name string) (Folder, error) {
	prefix := safeName(name)
	return Folder{ID: prefix, Link: g.publicURL(prefix) + "/"}, nil
}

func (g *GCSFileStore) Upload(ctx context.Context, folder Folder, name, contentType string, r io.Reader) (string, error) {
	object := path.Join(folder.ID, safeName(name))
	wc := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		wc.ContentType = contentType
	}
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", fmt.Errorf("%w: write gs://%s/%s: %v", utils.ErrUpstream, g.bucket, object, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("%w: close gs://%s/%s: %v", utils.ErrUpstream, g.bucket, object, err)
	}
	return g.publicURL(object), nil
}

func (g *GCSFileStore) publicURL(object string) string {
	u := url.URL{Scheme: "https", Host: "storage.googleapis.com", Path: "/" + g.bucket + "/" + object}
	return u.String()
}
