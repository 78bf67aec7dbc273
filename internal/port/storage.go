package port

import (
	"context"
	"io"
)

// UploadInput describes a blob upload.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
}

// UploadOutput describes the stored blob.
type UploadOutput struct {
	// Path is the logical location, `{bucket}/{key}`.
	Path string
	ETag string
}

// ObjectStorage is the blob-store surface the pipeline writes normalized
// CSVs, batch CSVs, X2Beta workbooks and input snapshots to.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
}
