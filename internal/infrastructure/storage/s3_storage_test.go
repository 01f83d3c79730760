package storage

import (
	"context"
	"testing"
	"time"

	"github.com/noisycontents/fulfillment/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewS3BackupStore_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3BackupStore(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			AccessKey: "test-key",
			SecretKey: "test-secret",
		}
		_, err := NewS3BackupStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			SecretKey: "test-secret",
		}
		_, err := NewS3BackupStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
		}
		_, err := NewS3BackupStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates store", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:       "test-bucket",
			AccessKey:    "test-key",
			SecretKey:    "test-secret",
			Region:       "ap-northeast-2",
			Endpoint:     "http://localhost:9000",
			UsePathStyle: true,
			Prefix:       "manifests",
		}
		store, err := NewS3BackupStore(cfg)
		require.NoError(t, err)
		require.NotNil(t, store)
		assert.Equal(t, "test-bucket", store.Bucket())
	})

	t.Run("adds http prefix when missing and no SSL", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Endpoint:  "localhost:9000",
			UseSSL:    false,
		}
		store, err := NewS3BackupStore(cfg)
		require.NoError(t, err)
		require.NotNil(t, store)
	})

	t.Run("empty endpoint targets AWS", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
		}
		store, err := NewS3BackupStore(cfg)
		require.NoError(t, err)
		require.NotNil(t, store)
	})

	t.Run("WithLogger sets custom logger", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
		}
		store, err := NewS3BackupStore(cfg, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.NotNil(t, store.logger)
	})
}

func TestS3BackupStore_ObjectKey(t *testing.T) {
	cfg := &config.StorageConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Prefix:    "manifests/",
	}
	store, err := NewS3BackupStore(cfg)
	require.NoError(t, err)

	day := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	key := store.ObjectKey(day, "250602 노이지콘텐츠주문서(미니학습지_국내).xlsx")
	assert.Equal(t, "manifests/2025/06/02/250602 노이지콘텐츠주문서(미니학습지_국내).xlsx", key)
}

func TestS3BackupStore_Validation(t *testing.T) {
	cfg := &config.StorageConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}
	store, err := NewS3BackupStore(cfg)
	require.NoError(t, err)

	t.Run("empty file path returns error", func(t *testing.T) {
		_, err := store.BackupFile(context.Background(), time.Now(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file path is required")
	})

	t.Run("empty object key returns error", func(t *testing.T) {
		exists, err := store.ObjectExists(context.Background(), "")
		require.Error(t, err)
		assert.False(t, exists)
		assert.Contains(t, err.Error(), "object key is required")
	})

	t.Run("missing files are skipped without error", func(t *testing.T) {
		keys, err := store.BackupFiles(context.Background(), time.Now(), []string{"/nonexistent/file.xlsx"})
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}
