package cleanup

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/logging"
)

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestSchedulerRemovesFileAndRequestDir(t *testing.T) {
	root := t.TempDir()
	reqDir := filepath.Join(root, "0b6f0c1e-request")
	require.NoError(t, os.MkdirAll(reqDir, 0o755))
	file := filepath.Join(reqDir, "Some Song.mp3")
	require.NoError(t, os.WriteFile(file, []byte("ID3"), 0o644))

	d := NewDeleter(3, time.Millisecond, nil)
	s := NewScheduler(d, root, 2, 4)

	s.Schedule(file)
	require.NoError(t, s.Stop(context.Background()))

	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(reqDir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(root)
	assert.NoError(t, err, "download root must survive cleanup")
}

func TestSchedulerKeepsRootForTopLevelFiles(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "song.mp3")
	require.NoError(t, os.WriteFile(file, []byte("ID3"), 0o644))

	s := NewScheduler(NewDeleter(1, time.Millisecond, nil), root, 1, 1)
	s.Schedule(file)
	require.NoError(t, s.Stop(context.Background()))

	_, err := os.Stat(root)
	assert.NoError(t, err)
}

func TestSchedulerReportsFailures(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFile(t, mem, "downloads/req/song.mp3")

	d := &Deleter{
		Fs:           &flakyFs{Fs: mem, failures: 100, err: fs.ErrPermission},
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		Sleep:        noSleep,
		Logger:       logging.Nop(),
	}

	var failures atomic.Int32
	s := NewScheduler(d, "downloads", 1, 1)
	s.OnFailure = func(path string) {
		assert.Equal(t, "downloads/req/song.mp3", path)
		failures.Add(1)
	}

	s.Schedule("downloads/req/song.mp3")
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), failures.Load())
}

func TestSchedulerOverflowStillDeletes(t *testing.T) {
	root := t.TempDir()
	var files []string
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"} {
		p := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(p, []byte("ID3"), 0o644))
		files = append(files, p)
	}

	// Zero-capacity queue: every Schedule beyond a free worker spills to a goroutine.
	s := NewScheduler(NewDeleter(1, time.Millisecond, nil), root, 1, 0)
	for _, f := range files {
		s.Schedule(f)
	}
	require.NoError(t, s.Stop(context.Background()))

	for _, f := range files {
		_, err := os.Stat(f)
		assert.True(t, os.IsNotExist(err), f)
	}
}

func TestSchedulerIgnoresWorkAfterStop(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "late.mp3")
	require.NoError(t, os.WriteFile(file, []byte("ID3"), 0o644))

	s := NewScheduler(NewDeleter(1, time.Millisecond, nil), root, 1, 1)
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	assert.NotPanics(t, func() { s.Schedule(file) })
	_, err := os.Stat(file)
	assert.NoError(t, err)
}

func TestSchedulerStopDeadlineCancelsBackoff(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFile(t, mem, "downloads/song.mp3")

	d := NewDeleter(5, time.Hour, nil)
	d.Fs = mem

	s := NewScheduler(d, "downloads", 1, 1)
	s.Schedule("downloads/song.mp3")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.Stop(ctx)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
