package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pageza/foodgram/backend/internal/metrics"
)

// LocalStore writes images below a media root that the HTTP server exposes
// under baseURL.
type LocalStore struct {
	root    string
	baseURL string
}

var _ ImageStore = (*LocalStore)(nil)

func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Root is the directory served as media.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) locate(name string) (clean, full string) {
	clean = path.Clean("/" + name)
	return clean, filepath.Join(s.root, filepath.FromSlash(clean))
}

func (s *LocalStore) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, full := s.locate(name)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		metrics.ImageUploads.WithLabelValues("local", "error").Inc()
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		metrics.ImageUploads.WithLabelValues("local", "error").Inc()
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	metrics.ImageUploads.WithLabelValues("local", "ok").Inc()
	return s.baseURL + clean, nil
}

func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, full := s.locate(name)
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}
