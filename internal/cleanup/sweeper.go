package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/logging"
)

const lockFileName = ".sweep.lock"

// Sweeper removes leftovers from the download directory: files whose deletion
// failed, or that were orphaned by a crash before their response finished.
type Sweeper struct {
	Fs     afero.Fs
	Dir    string
	MaxAge time.Duration
	Logger *logging.Logger

	now  func() time.Time
	lock *flock.Flock
}

// NewSweeper creates a sweeper for dir on the OS filesystem
func NewSweeper(dir string, maxAge time.Duration, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Sweeper{
		Fs:     afero.NewOsFs(),
		Dir:    dir,
		MaxAge: maxAge,
		Logger: logger,
		now:    time.Now,
		lock:   flock.New(filepath.Join(dir, lockFileName)),
	}
}

// Sweep removes top-level entries older than MaxAge and returns how many were
// removed. If another process holds the sweep lock nothing is done.
func (s *Sweeper) Sweep() (int, error) {
	// The lock file lives inside Dir, so a directory that has not been
	// created yet has nothing to sweep.
	if _, err := s.Fs.Stat(s.Dir); os.IsNotExist(err) {
		return 0, nil
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		s.Logger.Debug("sweep skipped, lock held by another process")
		return 0, nil
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.Logger.Warnf("failed to release sweep lock: %v", err)
		}
	}()

	entries, err := afero.ReadDir(s.Fs, s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read download dir: %w", err)
	}

	cutoff := s.now().Add(-s.MaxAge)
	removed := 0
	for _, entry := range entries {
		if entry.Name() == lockFileName || !entry.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.Dir, entry.Name())
		if err := s.Fs.RemoveAll(path); err != nil {
			s.Logger.Warnf("sweep: failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.Logger.WithFields(map[string]interface{}{
			"dir":     s.Dir,
			"removed": removed,
			"max_age": s.MaxAge.String(),
		}).Info("Swept stale downloads")
	}
	return removed, nil
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if _, err := s.Sweep(); err != nil {
		s.Logger.ErrorWithErr("sweep failed", err)
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(); err != nil {
				s.Logger.ErrorWithErr("sweep failed", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
