package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores assets under a directory on disk. Intended for development;
// the HTTP server exposes the directory under BaseURL.
type Local struct {
	basePath string
	baseURL  string
}

func NewLocal(cfg Config) (*Local, error) {
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{basePath: cfg.BasePath, baseURL: strings.TrimRight(cfg.BaseURL, "/")}, nil
}

func (l *Local) Upload(ctx context.Context, ownerID uint64, r io.Reader, contentType string) (string, string, error) {
	key := avatarKey(ownerID, contentType)
	full := filepath.Join(l.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", "", err
	}

	f, err := os.Create(full) // truncates, so re-upload overwrites
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", "", err
	}
	if err := f.Close(); err != nil {
		return "", "", err
	}
	return l.baseURL + "/" + key, key, nil
}

func (l *Local) Delete(ctx context.Context, assetID string) error {
	err := os.Remove(filepath.Join(l.basePath, filepath.FromSlash(assetID)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
