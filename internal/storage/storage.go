// Package storage persists avatar images. Two backends are provided: a
// local directory for development and any S3-compatible object store for
// production. Each user owns exactly one avatar slot, so the asset key is
// derived from the owner id and uploads overwrite in place.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Storage is the capability the auth service needs for avatars.
type Storage interface {
	// Upload stores the image and returns its public URL and asset key.
	Upload(ctx context.Context, ownerID uint64, r io.Reader, contentType string) (url, assetID string, err error)
	// Delete removes a previously uploaded asset. Deleting an asset that
	// is already gone is not an error.
	Delete(ctx context.Context, assetID string) error
}

// Config selects and configures a backend.
type Config struct {
	Type      string // "local" or "s3"
	BasePath  string // local: directory for stored files
	BaseURL   string // public URL prefix assets are served from
	Bucket    string // s3: bucket name
	Region    string // s3: region ("auto" for R2-style endpoints)
	AccessKey string // s3: static credentials
	SecretKey string
	Endpoint  string // s3: custom endpoint for S3-compatible stores
}

// LoadConfig reads the storage backend selection from the environment.
func LoadConfig() Config {
	return Config{
		Type:      envOr("STORAGE_TYPE", "local"),
		BasePath:  envOr("STORAGE_PATH", "uploads"),
		BaseURL:   envOr("STORAGE_BASE_URL", "http://localhost:8080/static"),
		Bucket:    os.Getenv("STORAGE_BUCKET"),
		Region:    envOr("STORAGE_REGION", "auto"),
		AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
	}
}

// New builds the backend named by cfg.Type.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "local":
		return NewLocal(cfg)
	case "s3":
		return NewS3(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// avatarKey is the fixed per-owner asset key. One slot per user; a new
// upload replaces the old image under the same key.
func avatarKey(ownerID uint64, contentType string) string {
	return fmt.Sprintf("avatars/%d%s", ownerID, extFor(contentType))
}

func extFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
