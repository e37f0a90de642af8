package soundscapes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists generated audio and hands back a URL clients can fetch.
type BlobStore interface {
	// Save writes data under name and returns the public URL.
	Save(ctx context.Context, name string, data []byte) (string, error)
	// Delete removes the blob at name. Missing blobs are not an error.
	Delete(ctx context.Context, name string) error
}

// DiskBlobStore keeps audio files on local disk, served under /audio/.
type DiskBlobStore struct {
	dir string
}

func NewDiskBlobStore(dir string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &DiskBlobStore{dir: dir}, nil
}

func (s *DiskBlobStore) Save(_ context.Context, name string, data []byte) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return "/audio/" + name, nil
}

func (s *DiskBlobStore) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// path confines name inside the audio dir.
func (s *DiskBlobStore) path(name string) (string, error) {
	clean := filepath.Clean(name)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(s.dir, clean), nil
}

// Dir exposes the root for the static file route.
func (s *DiskBlobStore) Dir() string { return s.dir }
