package storage

import (
	"context"
	stderrors "errors"
	"io"
	"math"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/driftdb/driftdb/internal/config"
	"github.com/driftdb/driftdb/internal/errors"
)

// S3Store implements ArchiveStore for AWS S3 and S3-compatible endpoints.
type S3Store struct {
	client     *s3.Client
	bucket     string
	prefix     string
	maxRetries int
}

// NewS3Store creates an S3 archive store from the configured bucket.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeUploadFailed, "failed to load AWS config", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO and LocalStack need path-style addressing.
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client:     s3.NewFromConfig(awsCfg, s3Opts...),
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		maxRetries: 3,
	}, nil
}

// NewS3StoreWithClient creates an S3 store with a pre-configured client.
func NewS3StoreWithClient(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix, maxRetries: 3}
}

// Put uploads a local file.
func (s *S3Store) Put(ctx context.Context, localPath, objectPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to open source file", err)
	}
	defer file.Close()

	err = s.retryWithBackoff(ctx, func() error {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(objectPath)),
			Body:   file,
		})
		return err
	})
	if err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to upload "+objectPath, err)
	}
	return nil
}

// Get downloads an object to a local file.
func (s *S3Store) Get(ctx context.Context, objectPath, localPath string) error {
	var resp *s3.GetObjectOutput
	err := s.retryWithBackoff(ctx, func() error {
		var getErr error
		resp, getErr = s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(objectPath)),
		})
		var noSuchKey *s3types.NoSuchKey
		if stderrors.As(getErr, &noSuchKey) {
			return errors.NewStorageError(errors.CodeObjectNotFound, "object "+objectPath+" not found", getErr)
		}
		return getErr
	})
	if err != nil {
		if errors.HasCode(err, errors.CodeObjectNotFound) {
			return err
		}
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to download "+objectPath, err)
	}
	defer resp.Body.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to create destination file", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to write destination file", err)
	}
	return nil
}

// Exists reports whether the object is present.
func (s *S3Store) Exists(ctx context.Context, objectPath string) (bool, error) {
	var exists bool
	err := s.retryWithBackoff(ctx, func() error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(objectPath)),
		})
		if err != nil {
			var notFound *s3types.NotFound
			if stderrors.As(err, &notFound) {
				exists = false
				return nil
			}
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

// List returns all object paths under the given prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var objects []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.NewStorageError(errors.CodeUploadFailed, "failed to list objects", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, aws.ToString(obj.Key))
		}
	}
	return objects, nil
}

// Delete removes an object. S3 deletes are idempotent.
func (s *S3Store) Delete(ctx context.Context, objectPath string) error {
	err := s.retryWithBackoff(ctx, func() error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(objectPath)),
		})
		return err
	})
	if err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to delete "+objectPath, err)
	}
	return nil
}

func (s *S3Store) key(objectPath string) string {
	if s.prefix == "" {
		return objectPath
	}
	return path.Join(s.prefix, objectPath)
}

// retryWithBackoff executes the operation with exponential backoff retry.
func (s *S3Store) retryWithBackoff(ctx context.Context, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		// A missing object will stay missing; retrying just burns time.
		if errors.HasCode(lastErr, errors.CodeObjectNotFound) {
			return lastErr
		}

		if attempt < s.maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
