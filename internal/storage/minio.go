package storage

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config encapsulates the connection info for a MinIO (S3-compatible) server.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// MinioClient implements Client on top of minio-go.
type MinioClient struct {
	api    *minio.Client
	region string
}

// NewMinioClient validates cfg and builds a client. It does not contact the server.
func NewMinioClient(cfg Config) (*MinioClient, error) {
	endpoint, secure, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials must be provided")
	}

	api, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioClient{
		api:    api,
		region: strings.TrimSpace(cfg.Region),
	}, nil
}

// normalizeEndpoint accepts host:port or a bare http(s) URL. A scheme in the
// endpoint wins over the UseSSL flag.
func normalizeEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, fmt.Errorf("minio endpoint must be provided")
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "//"), "/"), useSSL, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid minio endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid minio endpoint %q: missing host", endpoint)
	}
	if u.Path != "" && u.Path != "/" {
		return "", false, fmt.Errorf("invalid minio endpoint %q: path is not allowed", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

// Endpoint returns the server URL the client talks to.
func (c *MinioClient) Endpoint() string {
	return c.api.EndpointURL().String()
}

func (c *MinioClient) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	buckets, err := c.api.ListBuckets(ctx)
	if err != nil {
		return nil, translateError("list buckets", err)
	}
	results := make([]BucketInfo, 0, len(buckets))
	for _, b := range buckets {
		results = append(results, BucketInfo{
			Name:         b.Name,
			CreationDate: b.CreationDate,
		})
	}
	return results, nil
}

func (c *MinioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ok, err := c.api.BucketExists(ctx, bucket)
	if err != nil {
		return false, translateError("check bucket "+bucket, err)
	}
	return ok, nil
}

func (c *MinioClient) MakeBucket(ctx context.Context, bucket string) error {
	err := c.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.region})
	return translateError("make bucket "+bucket, err)
}

func (c *MinioClient) RemoveBucket(ctx context.Context, bucket string) error {
	return translateError("remove bucket "+bucket, c.api.RemoveBucket(ctx, bucket))
}

func (c *MinioClient) ListObjects(ctx context.Context, bucket string, recursive bool) iter.Seq2[ObjectInfo, error] {
	return func(yield func(ObjectInfo, error) bool) {
		// cancelling stops minio-go's listing goroutine when the caller breaks early
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		for obj := range c.api.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: recursive}) {
			if obj.Err != nil {
				yield(ObjectInfo{}, translateError("list objects in "+bucket, obj.Err))
				return
			}
			if !yield(toObjectInfo(obj), nil) {
				return
			}
		}
	}
}

func (c *MinioClient) RemoveObject(ctx context.Context, bucket, key string) error {
	err := c.api.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	return translateError(fmt.Sprintf("remove object %s/%s", bucket, key), err)
}

// PutObject uploads the file at localPath and returns the resulting object's metadata.
func (c *MinioClient) PutObject(ctx context.Context, bucket, key, localPath string) (ObjectInfo, error) {
	opts := minio.PutObjectOptions{}
	if mt, err := mimetype.DetectFile(localPath); err == nil {
		opts.ContentType = mt.String()
	}

	op := fmt.Sprintf("upload %s to %s/%s", localPath, bucket, key)
	info, err := c.api.FPutObject(ctx, bucket, key, localPath, opts)
	if err != nil {
		return ObjectInfo{}, translateError(op, err)
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		LastModified: info.LastModified,
		ContentType:  opts.ContentType,
	}, nil
}

func (c *MinioClient) FGetObject(ctx context.Context, bucket, key, localPath string) error {
	err := c.api.FGetObject(ctx, bucket, key, localPath, minio.GetObjectOptions{})
	return translateError(fmt.Sprintf("download %s/%s", bucket, key), err)
}

func (c *MinioClient) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	obj, err := c.api.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, translateError(fmt.Sprintf("stat %s/%s", bucket, key), err)
	}
	return toObjectInfo(obj), nil
}

func (c *MinioClient) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := c.api.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError(fmt.Sprintf("get %s/%s", bucket, key), err)
	}
	return &objectReader{obj: obj, op: fmt.Sprintf("read %s/%s", bucket, key)}, nil
}

// objectReader translates errors surfaced lazily by minio.Object reads.
type objectReader struct {
	obj *minio.Object
	op  string
}

func (r *objectReader) Read(p []byte) (int, error) {
	n, err := r.obj.Read(p)
	if err != nil && err != io.EOF {
		return n, translateError(r.op, err)
	}
	return n, err
}

func (r *objectReader) Close() error {
	return r.obj.Close()
}

func toObjectInfo(obj minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          obj.Key,
		Size:         obj.Size,
		LastModified: obj.LastModified,
		ContentType:  obj.ContentType,
	}
}

var _ Client = (*MinioClient)(nil)
