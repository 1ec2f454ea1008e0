// Package cleanup removes served audio files once the response no longer needs them.
package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/afero"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/logging"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/metrics"
)

// Defaults for Deleter.
const (
	DefaultMaxAttempts  = 5
	DefaultInitialDelay = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Deleter removes files with exponential backoff. A file that was just streamed
// may still be held open by the server or the OS for a short while.
type Deleter struct {
	Fs           afero.Fs
	MaxAttempts  int
	InitialDelay time.Duration
	Sleep        SleepFunc
	Logger       *logging.Logger
}

// NewDeleter creates a deleter on the OS filesystem
func NewDeleter(maxAttempts int, initialDelay time.Duration, logger *logging.Logger) *Deleter {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Deleter{
		Fs:           afero.NewOsFs(),
		MaxAttempts:  maxAttempts,
		InitialDelay: initialDelay,
		Sleep:        sleepContext,
		Logger:       logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delete removes path and reports whether it is gone. It never panics and
// only logs when all attempts fail.
func (d *Deleter) Delete(ctx context.Context, path string) bool {
	start := time.Now()

	if _, err := d.Fs.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return true
	}

	delay := d.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= d.MaxAttempts; attempt++ {
		if err := d.Sleep(ctx, delay); err != nil {
			d.Logger.LogCleanup(path, attempt-1, time.Since(start), err)
			metrics.RecordCleanup("cancelled", attempt-1)
			return false
		}

		err := d.Fs.Remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			d.Logger.LogCleanup(path, attempt, time.Since(start), nil)
			metrics.RecordCleanup("deleted", attempt)
			return true
		}

		lastErr = err
		if errors.Is(err, fs.ErrPermission) {
			d.Logger.Debugf("delete %s: permission denied on attempt %d/%d", path, attempt, d.MaxAttempts)
		} else {
			d.Logger.Debugf("delete %s: attempt %d/%d failed: %v", path, attempt, d.MaxAttempts, err)
		}
		delay *= 2
	}

	if errors.Is(lastErr, fs.ErrPermission) {
		d.Logger.Errorf("Permission denied deleting file after %d attempts: %s", d.MaxAttempts, path)
	} else {
		d.Logger.Errorf("Error deleting file after %d attempts: %s, error: %v", d.MaxAttempts, path, lastErr)
	}
	d.Logger.LogCleanup(path, d.MaxAttempts, time.Since(start), lastErr)
	metrics.RecordCleanup("failed", d.MaxAttempts)
	return false
}
