package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no object exists at the key
var ErrNotFound = errors.New("object not found")

// Storage interface for run artifact storage
type Storage interface {
	// Put stores data at key, replacing any existing object
	Put(ctx context.Context, key string, data io.Reader, contentType string) error

	// Get retrieves the object at key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at key; missing objects are not an error
	Delete(ctx context.Context, key string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	S3Prefix     string
	AWSAccessKey string
	AWSSecretKey string
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewStorageFromEnv creates a storage instance from environment variables
func NewStorageFromEnv() (Storage, error) {
	return NewStorage(ConfigFromEnv(os.Getenv))
}

// ConfigFromEnv builds a StorageConfig using getenv
func ConfigFromEnv(getenv func(string) string) StorageConfig {
	storageType := getenv("STORAGE_TYPE")
	if storageType == "" {
		storageType = "local" // Default to local for development
	}

	cfg := StorageConfig{
		Type: StorageType(storageType),
	}

	switch cfg.Type {
	case StorageTypeLocal:
		cfg.LocalPath = getenv("STORAGE_LOCAL_PATH")
		if cfg.LocalPath == "" {
			cfg.LocalPath = "./storage/runs"
		}
	case StorageTypeS3:
		cfg.S3Bucket = getenv("AWS_S3_BUCKET")
		cfg.S3Region = getenv("AWS_REGION")
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1" // Default region
		}
		cfg.S3Prefix = getenv("AWS_S3_PREFIX")
		cfg.AWSAccessKey = getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = getenv("AWS_SECRET_ACCESS_KEY")
	}
	return cfg
}

// RunPrefix is the key prefix for every artifact of a run. The first two
// characters of the id fan runs out across directories.
func RunPrefix(runID uuid.UUID) string {
	id := runID.String()
	return fmt.Sprintf("runs/%s/%s", id[:2], id)
}

// ManifestKey is where a run's generation requests are archived
func ManifestKey(runID uuid.UUID) string {
	return RunPrefix(runID) + "/manifest.json"
}

// cleanKey rejects keys that would escape the storage root
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	if cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	return cleaned, nil
}
