package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/fablab/backend/internal/infrastructure/config"
)

// S3Storage archives rendered PDFs in an S3-compatible object store.
// It works against AWS S3 as well as MinIO-style deployments with a
// custom endpoint and path-style addressing.
type S3Storage struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewS3Storage creates an object storage archive from configuration
func NewS3Storage(cfg *config.StorageConfig, logger *zap.Logger) (*S3Storage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &S3Storage{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet. Called once at
// startup so the first archive write cannot fail on a missing bucket.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Store uploads a PDF under the given object key
func (s *S3Storage) Store(ctx context.Context, path string, data []byte) error {
	if path == "" {
		return NewRenderError(ErrCodeStorageFailed, "invalid path", nil)
	}
	if len(data) == 0 {
		return NewRenderError(ErrCodeStorageFailed, "PDF data is empty", nil)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return NewRenderError(ErrCodeStorageFailed, "failed to upload PDF", err)
	}

	s.logger.Info("PDF archived",
		zap.String("path", path),
		zap.Int("size", len(data)))
	return nil
}

// Get retrieves an archived PDF by its object key
func (s *S3Storage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, NewRenderError(ErrCodeStorageFailed, "invalid path", nil)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isObjectNotFound(err) {
			return nil, NewRenderError(ErrCodeStorageFailed, "PDF not found", err)
		}
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to fetch PDF", err)
	}
	return out.Body, nil
}

// Exists reports whether an archive entry is present
func (s *S3Storage) Exists(ctx context.Context, path string) (bool, error) {
	if path == "" {
		return false, NewRenderError(ErrCodeStorageFailed, "invalid path", nil)
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isObjectNotFound(err) {
			return false, nil
		}
		return false, NewRenderError(ErrCodeStorageFailed, "failed to check PDF existence", err)
	}
	return true, nil
}

// Delete removes an archived PDF. Deleting a missing entry is not an error.
func (s *S3Storage) Delete(ctx context.Context, path string) error {
	if path == "" {
		return NewRenderError(ErrCodeStorageFailed, "invalid path", nil)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return NewRenderError(ErrCodeStorageFailed, "failed to delete PDF", err)
	}

	s.logger.Info("PDF deleted", zap.String("path", path))
	return nil
}

// Bucket returns the configured bucket name
func (s *S3Storage) Bucket() string {
	return s.bucket
}

func normalizeEndpoint(endpoint string, useSSL bool) string {
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// isObjectNotFound matches the error shapes S3-compatible services return
// for a missing key; they are not consistent about the typed errors.
func isObjectNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey")
}

var _ PDFStorage = (*S3Storage)(nil)
