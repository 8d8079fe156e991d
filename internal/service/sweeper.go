package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bagumbayan/brgydocs/internal/repository"
)

// Sweeper deletes request directories and uploaded photos once they are
// older than the retention period, and optionally prunes the archive.
type Sweeper struct {
	dirs      []string
	retention time.Duration
	logger    *slog.Logger

	archive          repository.ArchiveRepository
	archiveRetention time.Duration
}

func NewSweeper(retention time.Duration, logger *slog.Logger, dirs ...string) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{dirs: dirs, retention: retention, logger: logger}
}

// PruneArchive makes each sweep also delete archived certificates older
// than retention. A zero retention leaves the archive alone.
func (s *Sweeper) PruneArchive(archive repository.ArchiveRepository, retention time.Duration) *Sweeper {
	s.archive = archive
	s.archiveRetention = retention
	return s
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || s.retention <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.Sweep(ctx, now)
		}
	}
}

// Sweep removes the top-level entries of each directory last modified
// before now minus the retention. It returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-s.retention)
	removed := 0
	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.WarnContext(ctx, "sweep: read dir", slog.String("dir", dir), slog.String("error", err.Error()))
			}
			continue
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.RemoveAll(path); err != nil {
				s.logger.WarnContext(ctx, "sweep: remove", slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			removed++
		}
	}
	if s.archive != nil && s.archiveRetention > 0 {
		n, err := s.archive.Prune(ctx, now.Add(-s.archiveRetention))
		if err != nil {
			s.logger.WarnContext(ctx, "sweep: prune archive", slog.String("error", err.Error()))
		}
		removed += n
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "sweep complete", slog.Int("removed", removed))
	}
	return removed
}
