package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func age(t *testing.T, path string, d time.Duration) {
	t.Helper()
	old := time.Now().Add(-d)
	require.NoError(t, os.Chtimes(path, old, old))
}

func TestSweepRemovesStaleEntries(t *testing.T) {
	dir := t.TempDir()

	staleDir := filepath.Join(dir, "stale-request")
	require.NoError(t, os.MkdirAll(staleDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staleDir, "old.mp3"), []byte("ID3"), 0o644))
	age(t, staleDir, 48*time.Hour)

	staleFile := filepath.Join(dir, "orphan.mp3")
	require.NoError(t, os.WriteFile(staleFile, []byte("ID3"), 0o644))
	age(t, staleFile, 48*time.Hour)

	fresh := filepath.Join(dir, "fresh.mp3")
	require.NoError(t, os.WriteFile(fresh, []byte("ID3"), 0o644))

	s := NewSweeper(dir, 24*time.Hour, nil)
	removed, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = os.Stat(staleDir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(staleFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestSweepSkipsWhenLocked(t *testing.T) {
	dir := t.TempDir()
	staleFile := filepath.Join(dir, "orphan.mp3")
	require.NoError(t, os.WriteFile(staleFile, []byte("ID3"), 0o644))
	age(t, staleFile, 48*time.Hour)

	other := flock.New(filepath.Join(dir, lockFileName))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	s := NewSweeper(dir, time.Hour, nil)
	removed, err := s.Sweep()
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = os.Stat(staleFile)
	assert.NoError(t, err)
}

func TestSweepMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	s := NewSweeper(dir, time.Hour, nil)

	removed, err := s.Sweep()
	assert.NoError(t, err)
	assert.Zero(t, removed)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "sweep should not create the download dir")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	s := NewSweeper(dir, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
