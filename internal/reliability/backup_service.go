// Package reliability uploads gzip-compressed store snapshots to S3-compatible
// object storage and rotates old ones.
package reliability

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	timestampLayout  = "2006-01-02-150405"
	minBackupsToKeep = 3
)

// Snapshotter is the part of a store the backup service needs
type Snapshotter interface {
	Name() string
	Snapshot(ctx context.Context, w io.Writer) error
}

// BackupInfo represents a backup stored remotely
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService manages snapshot uploads
type BackupService struct {
	store  Snapshotter
	remote Remote
	prefix string
	clock  func() time.Time
	log    zerolog.Logger
}

// NewBackupService creates a backup service. Keys are
// <prefix>lotofacil-<backend>-<yyyy-mm-dd-hhmmss>.gz.
func NewBackupService(store Snapshotter, remote Remote, prefix string, log zerolog.Logger) *BackupService {
	return &BackupService{
		store:  store,
		remote: remote,
		prefix: prefix,
		clock:  time.Now,
		log:    log.With().Str("service", "backup").Logger(),
	}
}

func (s *BackupService) namePrefix() string {
	return s.prefix + "lotofacil-" + s.store.Name() + "-"
}

// Run snapshots the store and uploads it, returning the object key.
func (s *BackupService) Run(ctx context.Context) (string, error) {
	start := time.Now()
	key := s.namePrefix() + s.clock().UTC().Format(timestampLayout) + ".gz"

	pr, pw := io.Pipe()
	go func() {
		gz := gzip.NewWriter(pw)
		err := s.store.Snapshot(ctx, gz)
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	if err := s.remote.Upload(ctx, key, pr); err != nil {
		pr.CloseWithError(err)
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().
		Str("key", key).
		Dur("duration", time.Since(start)).
		Msg("Backup uploaded")
	return key, nil
}

// ListBackups lists this backend's backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	prefix := s.namePrefix()
	objects, err := s.remote.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := s.clock()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, prefix) || !strings.HasSuffix(obj.Key, ".gz") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), ".gz")
		ts, err := time.Parse(timestampLayout, stamp)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from key")
			continue
		}
		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: ts,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays, always keeping
// the newest three. retentionDays <= 0 keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.clock().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, b := range backups[minBackupsToKeep:] {
		if !b.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.remote.Delete(ctx, b.Key); err != nil {
			s.log.Error().Err(err).Str("key", b.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return deleted, nil
}
