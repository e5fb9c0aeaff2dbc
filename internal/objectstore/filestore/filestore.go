// Package filestore is an objectstore backend over a local directory tree:
// <root>/<bucket>/<key>. It is used for local replays of merge events.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"sheetmerge/internal/objectstore"
)

func init() {
	objectstore.Register("file", func(ctx context.Context, cfg objectstore.Config) (objectstore.Store, error) {
		return New(cfg.Root)
	})
}

// Store maps buckets to subdirectories of Root.
type Store struct {
	root string
}

// New returns a Store rooted at root, which must be an existing directory.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("filestore: root directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("filestore: %w", err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("filestore: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("filestore: %s is not a directory", abs)
	}
	return &Store{root: abs}, nil
}

// path resolves bucket/key under root and rejects names that escape the bucket.
func (s *Store) path(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("filestore: bucket and key are required")
	}
	if bucket == "." || bucket == ".." || strings.ContainsAny(bucket, `/\`) {
		return "", fmt.Errorf("filestore: invalid bucket %q", bucket)
	}
	dir := filepath.Join(s.root, bucket)
	p := filepath.Join(dir, filepath.FromSlash(key))
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("filestore: key %q escapes bucket %q", key, bucket)
	}
	return p, nil
}

func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", objectstore.ErrNotFound, bucket, key)
	}
	return b, err
}

// Put writes through a temp file and rename so readers never see a partial object.
// contentType is not recorded.
func (s *Store) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (s *Store) Close() error { return nil }
