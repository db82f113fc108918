// Package backup copies the database to dated files and prunes old ones.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	filePrefix = "ledger-"
	fileSuffix = ".db"
	timeLayout = "20060102-150405"
)

// Source writes a consistent copy of the database to dest
type Source interface {
	BackupTo(ctx context.Context, dest string) error
}

// Recorder remembers when the last backup finished
type Recorder interface {
	SetLastBackup(t time.Time) error
}

// Config holds the backup settings
type Config struct {
	Dir           string
	RetentionDays int
}

// Service takes backups of one database
type Service struct {
	source   Source
	recorder Recorder
	config   Config
	clock    shared.Clock
	logger   *zap.Logger
}

// NewService creates a backup service. recorder may be nil.
func NewService(source Source, recorder Recorder, config Config, clock shared.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = shared.NewSystemClock(time.UTC)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RetentionDays <= 0 {
		config.RetentionDays = 30
	}
	return &Service{source: source, recorder: recorder, config: config, clock: clock, logger: logger.Named("backup")}
}

// Name identifies the service as a scheduled job
func (s *Service) Name() string { return "backup" }

// Run takes a backup and prunes expired ones
func (s *Service) Run(ctx context.Context) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "backup.run", "dir", s.config.Dir)
	defer func() { telemetry.Finish(span, err) }()

	path, err := s.Backup(ctx)
	if err != nil {
		return err
	}
	telemetry.AddEvent(ctx, "written", "path", path)
	removed, err := s.Prune()
	telemetry.AddEvent(ctx, "pruned", "removed", len(removed))
	return err
}

// Backup writes a new backup file and returns its path
func (s *Service) Backup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	now := s.clock.Now()
	dest := filepath.Join(s.config.Dir, filePrefix+now.UTC().Format(timeLayout)+fileSuffix)
	if err := s.source.BackupTo(ctx, dest); err != nil {
		return "", fmt.Errorf("backup to %s: %w", dest, err)
	}
	if s.recorder != nil {
		if err := s.recorder.SetLastBackup(now); err != nil {
			s.logger.Warn("failed to record backup time", zap.Error(err))
		}
	}
	s.logger.Info("Database backed up", zap.String("path", dest))
	return dest, nil
}

// Prune deletes backups older than the retention period and returns the
// removed paths. Files not named like a backup are left alone.
func (s *Service) Prune() ([]string, error) {
	cutoff := s.clock.Now().AddDate(0, 0, -s.config.RetentionDays)
	files, err := s.List()
	if err != nil {
		return nil, err
	}
	var removed []string
	var errs []error
	for _, f := range files {
		if !f.TakenAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(f.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, f.Path)
	}
	if len(removed) > 0 {
		s.logger.Info("Expired backups removed", zap.Int("count", len(removed)))
	}
	return removed, errors.Join(errs...)
}

// File is one backup on disk
type File struct {
	Path    string    `json:"path"`
	TakenAt time.Time `json:"taken_at"`
	Size    int64     `json:"size"`
}

// List returns the backups in the directory, oldest first
func (s *Service) List() ([]File, error) {
	entries, err := os.ReadDir(s.config.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	var files []File
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		at, err := time.ParseInLocation(timeLayout, stamp, time.UTC)
		if err != nil {
			continue
		}
		f := File{Path: filepath.Join(s.config.Dir, name), TakenAt: at}
		if info, err := e.Info(); err == nil {
			f.Size = info.Size()
		}
		files = append(files, f)
	}
	slices.SortFunc(files, func(a, b File) int { return a.TakenAt.Compare(b.TakenAt) })
	return files, nil
}
