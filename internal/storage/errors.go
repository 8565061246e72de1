package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrBucketNotFound = errors.New("bucket not found")
	ErrBucketExists   = errors.New("bucket already exists")
)

// ServiceError is a failure reported by the storage server.
type ServiceError struct {
	Op         string
	Code       string
	Message    string
	StatusCode int
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// translateError maps minio-go errors onto the package error kinds.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey":
		return fmt.Errorf("%s: %w", op, ErrObjectNotFound)
	case "NoSuchBucket":
		return fmt.Errorf("%s: %w", op, ErrBucketNotFound)
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return fmt.Errorf("%s: %w", op, ErrBucketExists)
	case "":
		return errors.Wrap(err, op)
	}

	return &ServiceError{
		Op:         op,
		Code:       resp.Code,
		Message:    resp.Message,
		StatusCode: resp.StatusCode,
	}
}
