package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/autopo-py/minioctl/internal/storage"
	"github.com/andresuchdata/autopo-py/minioctl/pkg/logger"
)

const timeLayout = "2006-01-02 15:04:05 MST"

func rule(width int) string {
	return strings.Repeat("-", width)
}

func (s *Session) listBuckets(ctx context.Context) error {
	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return err
	}

	if len(buckets) == 0 {
		fmt.Fprintln(s.out, "\nNo buckets found.")
		if s.consoleURL != "" {
			fmt.Fprintf(s.out, "Tip: create a bucket in the web console at %s\n", s.consoleURL)
		}
		return nil
	}

	fmt.Fprintln(s.out, "\nBuckets found:")
	fmt.Fprintln(s.out, rule(50))
	for _, b := range buckets {
		fmt.Fprintf(s.out, "Name: %s\n", b.Name)
		fmt.Fprintf(s.out, "Created: %s\n", b.CreationDate.Format(timeLayout))
		fmt.Fprintln(s.out, rule(50))
	}
	return nil
}

func (s *Session) createBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		fmt.Fprintf(s.out, "Bucket '%s' already exists.\n", bucket)
		return nil
	}

	if err := s.client.MakeBucket(ctx, bucket); err != nil {
		if errors.Is(err, storage.ErrBucketExists) {
			fmt.Fprintf(s.out, "Bucket '%s' already exists.\n", bucket)
			return nil
		}
		return err
	}

	logger.Log.Debug().Str("bucket", bucket).Msg("bucket created")
	fmt.Fprintf(s.out, "Bucket '%s' created successfully!\n", bucket)
	return nil
}

func (s *Session) deleteBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Fprintf(s.out, "Bucket '%s' does not exist.\n", bucket)
		return nil
	}

	nonEmpty, err := s.hasObjects(ctx, bucket)
	if err != nil {
		return err
	}

	if nonEmpty {
		fmt.Fprintf(s.out, "Bucket '%s' is not empty.\n", bucket)
		ok, err := s.confirm(ctx, "Remove all objects and delete the bucket?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(s.out, "Operation cancelled.")
			return nil
		}

		for obj, err := range s.client.ListObjects(ctx, bucket, true) {
			if err != nil {
				return err
			}
			if err := s.client.RemoveObject(ctx, bucket, obj.Key); err != nil {
				return err
			}
			logger.Log.Debug().Str("bucket", bucket).Str("key", obj.Key).Msg("object removed")
			fmt.Fprintf(s.out, "Object '%s' removed.\n", obj.Key)
		}
	}

	if err := s.client.RemoveBucket(ctx, bucket); err != nil {
		return err
	}

	logger.Log.Debug().Str("bucket", bucket).Msg("bucket removed")
	fmt.Fprintf(s.out, "Bucket '%s' deleted successfully!\n", bucket)
	return nil
}

// hasObjects stops the listing at the first entry.
func (s *Session) hasObjects(ctx context.Context, bucket string) (bool, error) {
	for _, err := range s.client.ListObjects(ctx, bucket, false) {
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (s *Session) listObjects(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Fprintf(s.out, "Bucket '%s' does not exist.\n", bucket)
		return nil
	}

	var objects []storage.ObjectInfo
	for obj, err := range s.client.ListObjects(ctx, bucket, true) {
		if err != nil {
			return err
		}
		objects = append(objects, obj)
	}

	if len(objects) == 0 {
		fmt.Fprintf(s.out, "\nBucket '%s' is empty.\n", bucket)
		return nil
	}

	fmt.Fprintf(s.out, "\nObjects in bucket '%s':\n", bucket)
	fmt.Fprintln(s.out, rule(70))
	for _, obj := range objects {
		fmt.Fprintf(s.out, "Name: %s\n", obj.Key)
		fmt.Fprintf(s.out, "Size: %d bytes\n", obj.Size)
		fmt.Fprintf(s.out, "Last modified: %s\n", obj.LastModified.Format(timeLayout))
		fmt.Fprintln(s.out, rule(70))
	}
	return nil
}

// upload sends localPath to bucket under key, or under the file name when key is empty.
func (s *Session) upload(ctx context.Context, bucket, localPath, key string) error {
	info, err := os.Stat(localPath)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(s.out, "File '%s' not found.\n", localPath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	if !info.Mode().IsRegular() {
		fmt.Fprintf(s.out, "'%s' is not a regular file.\n", localPath)
		return nil
	}

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Fprintf(s.out, "Bucket '%s' does not exist.\n", bucket)
		ok, err := s.confirm(ctx, "Create the bucket?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(s.out, "Upload cancelled.")
			return nil
		}
		switch err := s.client.MakeBucket(ctx, bucket); {
		case errors.Is(err, storage.ErrBucketExists):
			fmt.Fprintf(s.out, "Bucket '%s' already exists.\n", bucket)
		case err != nil:
			return err
		default:
			fmt.Fprintf(s.out, "Bucket '%s' created.\n", bucket)
		}
	}

	if key == "" {
		key = filepath.Base(localPath)
	}

	if _, err := s.client.PutObject(ctx, bucket, key, localPath); err != nil {
		return err
	}
	logger.Log.Debug().Str("bucket", bucket).Str("key", key).Str("path", localPath).Int64("size", info.Size()).Msg("object uploaded")
	fmt.Fprintf(s.out, "File '%s' uploaded as '%s' to bucket '%s'!\n", localPath, key, bucket)

	stat, err := s.client.StatObject(ctx, bucket, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Size: %d bytes\n", stat.Size)
	fmt.Fprintf(s.out, "Last modified: %s\n", stat.LastModified.Format(timeLayout))
	return nil
}

// download saves bucket/key to localPath, or to the object key when localPath is empty.
func (s *Session) download(ctx context.Context, bucket, key, localPath string) error {
	found, err := s.objectExists(ctx, bucket, key)
	if err != nil || !found {
		return err
	}

	if localPath == "" {
		localPath = key
	}

	if err := s.client.FGetObject(ctx, bucket, key, localPath); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "File '%s' downloaded as '%s'!\n", key, localPath)

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	logger.Log.Debug().Str("bucket", bucket).Str("key", key).Str("path", localPath).Int64("size", info.Size()).Msg("object downloaded")
	fmt.Fprintf(s.out, "Size: %d bytes\n", info.Size())
	return nil
}

func (s *Session) readText(ctx context.Context, bucket, key string) error {
	found, err := s.objectExists(ctx, bucket, key)
	if err != nil || !found {
		return err
	}

	content, err := s.readObject(ctx, bucket, key)
	if err != nil {
		return err
	}

	if !isText(content) {
		fmt.Fprintf(s.out, "File '%s' is binary (%s, %d bytes).\n", key, detectType(content), len(content))
		fmt.Fprintln(s.out, "Use the download option for binary files.")
		return nil
	}

	fmt.Fprintf(s.out, "Content of file '%s':\n", key)
	fmt.Fprintln(s.out, strings.Repeat("=", 50))
	fmt.Fprintln(s.out, string(content))
	fmt.Fprintln(s.out, strings.Repeat("=", 50))
	return nil
}

// readObject reads the whole object and always releases the stream.
func (s *Session) readObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := obj.Close(); err != nil {
			logger.Log.Warn().Err(err).Str("bucket", bucket).Str("key", key).Msg("failed to close object")
		}
	}()

	return io.ReadAll(obj)
}

// objectExists reports missing buckets and keys to the user and returns false for them.
func (s *Session) objectExists(ctx context.Context, bucket, key string) (bool, error) {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, err
	}
	if !exists {
		fmt.Fprintf(s.out, "Bucket '%s' does not exist.\n", bucket)
		return false, nil
	}

	if _, err := s.client.StatObject(ctx, bucket, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			fmt.Fprintf(s.out, "Object '%s' not found in bucket '%s'.\n", key, bucket)
			return false, nil
		}
		return false, err
	}
	return true, nil
}
