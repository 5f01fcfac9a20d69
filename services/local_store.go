package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalFileStore writes attachments below a directory on disk and links
// them through the file-serving endpoint.
type LocalFileStore struct {
	root    string
	maxSize int64
	baseURL string
}

func NewLocalFileStore(root string, maxSize int64, baseURL string) *LocalFileStore {
	return &LocalFileStore{root: root, maxSize: maxSize, baseURL: strings.TrimRight(baseURL, "/")}
}

func (l *LocalFileStore) Root() string {
	return l.root
}

func (l *LocalFileStore) CreateFolder(ctx context.Context, name string) (Folder, error) {
	rel := safeName(name)
	if err := os.MkdirAll(filepath.Join(l.root, rel), 0755); err != nil {
		return Folder{}, fmt.Errorf("unable to create directory %s: %w", rel, err)
	}
	return Folder{ID: rel, Link: l.link(rel)}, nil
}

func (l *LocalFileStore) Upload(ctx context.Context, folder Folder, name, contentType string, r io.Reader) (string, error) {
	filename := safeName(filepath.Base(name))
	if filename == "" || filename == "." {
		return "", fmt.Errorf("invalid file name")
	}
	dir := filepath.Join(l.root, folder.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unable to create directory %s: %w", dir, err)
	}

	rel := filepath.ToSlash(filepath.Join(folder.ID, uuid.NewString()+"-"+filename))
	dst, err := os.Create(filepath.Join(l.root, rel))
	if err != nil {
		return "", fmt.Errorf("unable to create the file: %w", err)
	}
	defer dst.Close()

	src := r
	if l.maxSize > 0 {
		src = io.LimitReader(r, l.maxSize+1)
	}
	n, err := io.Copy(dst, src)
	if err != nil {
		return "", fmt.Errorf("unable to save the file: %w", err)
	}
	if l.maxSize > 0 && n > l.maxSize {
		dst.Close()
		os.Remove(filepath.Join(l.root, rel))
		return "", fmt.Errorf("file size exceeds the allowed limit")
	}
	return l.link(rel), nil
}

func (l *LocalFileStore) link(rel string) string {
	return l.baseURL + "/api/files?file=" + url.QueryEscape(rel)
}

// safeName keeps letters, digits, dot, dash and underscore so that stored
// names can never escape their folder.
func safeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '@' || r == '/':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), ".")
}
