package storage

import (
	"context"
	"io"
	"iter"
	"time"
)

// BucketInfo represents a top-level container on the server.
type BucketInfo struct {
	Name         string
	CreationDate time.Time
}

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Client captures the S3-compatible operations the shell needs.
// Nothing is cached: every call goes to the server.
type Client interface {
	ListBuckets(ctx context.Context) ([]BucketInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string) error
	RemoveBucket(ctx context.Context, bucket string) error

	// ListObjects yields objects lazily. Breaking out of the loop stops the listing.
	ListObjects(ctx context.Context, bucket string, recursive bool) iter.Seq2[ObjectInfo, error]
	RemoveObject(ctx context.Context, bucket, key string) error

	PutObject(ctx context.Context, bucket, key, localPath string) (ObjectInfo, error)
	FGetObject(ctx context.Context, bucket, key, localPath string) error
	StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error)

	// GetObject opens a stream to the object. The caller must Close it.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
