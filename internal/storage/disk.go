package storage

import (
	"fmt"

	"github.com/ovrm/mediahub/internal/config"
)

// Disk is the blob-store capability the media pipeline writes against. Paths
// are forward-slash keys relative to the disk root ("media/2026/08/cat.jpg").
type Disk interface {
	Exists(path string) bool
	MakeDirectory(path string) error
	Put(path string, data []byte) error
	Size(path string) (int64, error)
	ProbeMimeType(path string) (string, error)
	Delete(path string) error
	// URL returns the public address a stored object is served from
	URL(path string) string
}

func New(cfg *config.Config) (Disk, error) {
	switch cfg.Media.StorageDriver {
	case "", "local":
		return NewLocal(cfg.UploadDir)
	case "s3":
		return NewS3(cfg.S3Bucket, cfg.S3Region, cfg.CloudFrontURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Media.StorageDriver)
	}
}
