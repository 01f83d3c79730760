// Package storage backs up generated manifest files to object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	infraconfig "github.com/noisycontents/fulfillment/internal/infrastructure/config"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// S3BackupStore archives daily manifest files in an S3 bucket.
// It is compatible with any S3-compatible storage (AWS S3, RustFS, MinIO, etc.)
type S3BackupStore struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// S3BackupStoreOption is a functional option for configuring S3BackupStore
type S3BackupStoreOption func(*S3BackupStore)

// WithLogger sets a custom logger for S3BackupStore
func WithLogger(logger *zap.Logger) S3BackupStoreOption {
	return func(s *S3BackupStore) {
		s.logger = logger
	}
}

// NewS3BackupStore creates a new S3BackupStore from configuration.
// It supports any S3-compatible storage backend (AWS S3, RustFS, MinIO, etc.)
func NewS3BackupStore(cfg *infraconfig.StorageConfig, opts ...S3BackupStoreOption) (*S3BackupStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}

	// Validate required configuration
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	// Build endpoint URL; empty means plain AWS S3
	endpoint := cfg.Endpoint
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			if cfg.UseSSL {
				endpoint = "https://" + endpoint
			} else {
				endpoint = "http://" + endpoint
			}
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "ap-northeast-2"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"", // session token (not used for static credentials)
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3BackupStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3BackupStore) EnsureBucket(ctx context.Context) error {
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

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Ignore "BucketAlreadyOwnedByYou" error (race condition)
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.logger.Info("Storage bucket created successfully", zap.String("bucket", s.bucket))
	return nil
}

// ObjectKey returns the backup key for a manifest file generated on the given day.
func (s *S3BackupStore) ObjectKey(day time.Time, fileName string) string {
	return path.Join(s.prefix, day.Format("2006/01/02"), fileName)
}

// BackupFile uploads a single local manifest file under the day's prefix.
func (s *S3BackupStore) BackupFile(ctx context.Context, day time.Time, filePath string) (string, error) {
	if filePath == "" {
		return "", errors.New("file path is required")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read manifest file: %w", err)
	}

	key := s.ObjectKey(day, filepath.Base(filePath))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(string(data)),
		ContentType: aws.String(xlsxContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Info("Manifest backed up",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)))
	return key, nil
}

// BackupFiles uploads every existing file in the list and returns the stored keys.
// Missing files are skipped so a day with no international orders still backs up.
func (s *S3BackupStore) BackupFiles(ctx context.Context, day time.Time, filePaths []string) ([]string, error) {
	keys := make([]string, 0, len(filePaths))
	for _, p := range filePaths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		key, err := s.BackupFile(ctx, day, p)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ObjectExists checks if an object exists in storage.
func (s *S3BackupStore) ObjectExists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("object key is required")
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return false, nil
		}
		// Some S3-compatible services report missing objects differently
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}

	return true, nil
}

// Bucket returns the bucket name
func (s *S3BackupStore) Bucket() string {
	return s.bucket
}
