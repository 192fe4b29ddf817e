// Package storage provides S3-compatible object storage for lead
// attachments. The adapter is domain-agnostic so other modules can
// reuse it for their own buckets.
package storage

import (
	"context"
	"io"
	"time"
)

// DownloadURLTTL bounds how long a generated download link stays valid.
const DownloadURLTTL = 15 * time.Minute

// PresignedURL is a time-limited link to an object.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectStore is the storage surface the rest of the app depends on.
type ObjectStore interface {
	// UploadFile streams one object into the bucket under folder and
	// returns the generated file key.
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)

	// GenerateDownloadURL creates a presigned GET link for an object.
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)

	// DownloadFile opens the object for reading. The caller closes it.
	DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error)

	// DeleteObject removes an object.
	DeleteObject(ctx context.Context, bucket, fileKey string) error

	// EnsureBucketExists creates the bucket when missing.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// ValidateContentType rejects MIME types that are not allowed.
	ValidateContentType(contentType string) error

	// ValidateFileSize rejects empty and oversized uploads.
	ValidateFileSize(sizeBytes int64) error
}
