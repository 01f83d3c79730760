// Package storage backs up generated manifest files to object storage.
package storage

import (
	"context"
	"time"
)

// NopBackupStore is the backup implementation used when object storage is
// disabled in configuration. All operations succeed without doing anything.
type NopBackupStore struct{}

// NewNopBackupStore creates a new NopBackupStore
func NewNopBackupStore() *NopBackupStore {
	return &NopBackupStore{}
}

// BackupFile is a no-op that reports no stored key
func (s *NopBackupStore) BackupFile(ctx context.Context, day time.Time, filePath string) (string, error) {
	return "", nil
}

// BackupFiles is a no-op that reports no stored keys
func (s *NopBackupStore) BackupFiles(ctx context.Context, day time.Time, filePaths []string) ([]string, error) {
	return nil, nil
}
