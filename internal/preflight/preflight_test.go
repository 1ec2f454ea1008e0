package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "yt-dlp")
	require.NoError(t, os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	results := CheckBinaries([]Requirement{
		{Name: "yt-dlp", Command: present},
		{Name: "FFmpeg", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	})
	require.Len(t, results, 3)

	assert.True(t, results[0].Available)
	assert.Equal(t, present, results[0].Path)
	assert.Empty(t, results[0].Detail)

	assert.False(t, results[1].Available)
	assert.Equal(t, "clearly-not-present-binary", results[1].Command)
	assert.Contains(t, results[1].Detail, "not found")

	assert.False(t, results[2].Available)
	assert.Equal(t, "command not configured", results[2].Detail)

	missing := Missing(results)
	assert.Len(t, missing, 2)
	assert.Equal(t, "FFmpeg", missing[0].Name)
}

func TestRequirements(t *testing.T) {
	reqs := Requirements(config.DownloadConfig{YtdlpPath: "/opt/yt-dlp", FFmpegPath: "/opt/ffmpeg"})
	require.Len(t, reqs, 2)
	assert.Equal(t, "/opt/yt-dlp", reqs[0].Command)
	assert.Equal(t, "/opt/ffmpeg", reqs[1].Command)
}
