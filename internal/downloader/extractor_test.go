package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeYtdlp writes a shell script that records its argv, one per line, to
// the returned args file and then runs body.
func fakeYtdlp(t *testing.T, body string) (executable, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake yt-dlp is a shell script")
	}

	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	executable = filepath.Join(dir, "yt-dlp")

	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' \"$@\" > '%s'\n%s\n", argsFile, body)
	require.NoError(t, os.WriteFile(executable, []byte(script), 0o755))
	return executable, argsFile
}

func recordedArgs(t *testing.T, argsFile string) []string {
	t.Helper()
	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// flagValue returns the argument following flag, or "" when flag is absent.
func flagValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestYtdlpExtractorArgsAndResult(t *testing.T) {
	outDir := t.TempDir()
	source := filepath.Join(outDir, "Song.webm")
	executable, argsFile := fakeYtdlp(t,
		fmt.Sprintf(`echo '{"_type":"video","id":"dQw4w9WgXcQ","title":"Song","filename":"%s"}'`, source))

	e := NewYtdlpExtractor(executable, "/opt/ffmpeg/bin/ffmpeg", []string{"android", "ios"})
	result, err := e.Extract(context.Background(), ExtractOptions{
		URL:       "https://youtu.be/dQw4w9WgXcQ",
		Bitrate:   "192",
		OutputDir: outDir,
	})
	require.NoError(t, err)
	assert.Equal(t, source, result.Filename)
	assert.Equal(t, "Song", result.Title)

	args := recordedArgs(t, argsFile)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", args[len(args)-1])
	assert.Equal(t, AudioFormatSelector, flagValue(args, "--format"))
	assert.Equal(t, "mp3", flagValue(args, "--audio-format"))
	assert.Equal(t, "192K", flagValue(args, "--audio-quality"))
	assert.Equal(t, filepath.Join(outDir, OutputTemplate), flagValue(args, "--output"))
	assert.Equal(t, "youtube:player_client=android,ios", flagValue(args, "--extractor-args"))
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", flagValue(args, "--ffmpeg-location"))
	assert.Contains(t, args, "--extract-audio")
	assert.Contains(t, args, "--no-playlist")
	assert.Contains(t, args, "--print-json")
}

func TestYtdlpExtractorOmitsDefaultFFmpeg(t *testing.T) {
	executable, argsFile := fakeYtdlp(t, `echo '{"_type":"video","title":"Song","filename":"Song.webm"}'`)

	for _, ffmpegPath := range []string{"", "ffmpeg"} {
		e := NewYtdlpExtractor(executable, ffmpegPath, nil)
		_, err := e.Extract(context.Background(), ExtractOptions{URL: "https://youtu.be/x", Bitrate: "128", OutputDir: t.TempDir()})
		require.NoError(t, err)

		args := recordedArgs(t, argsFile)
		assert.NotContains(t, args, "--ffmpeg-location", ffmpegPath)
		assert.NotContains(t, args, "--extractor-args", ffmpegPath)
	}
}

func TestYtdlpExtractorFailure(t *testing.T) {
	executable, _ := fakeYtdlp(t, `echo 'WARNING: ffmpeg not found. Please install' >&2
echo 'ERROR: [youtube] x: Private video. Sign in if you have been granted access' >&2
exit 1`)

	e := NewYtdlpExtractor(executable, "", nil)
	_, err := e.Extract(context.Background(), ExtractOptions{URL: "https://youtu.be/x", Bitrate: "192", OutputDir: t.TempDir()})

	var extErr *ExtractorError
	require.True(t, errors.As(err, &extErr))
	assert.Contains(t, extErr.Stderr, "WARNING: ffmpeg not found")
	assert.Equal(t, "ERROR: [youtube] x: Private video. Sign in if you have been granted access", extErr.Error())
	assert.Equal(t, KindUnavailable, Classify(err).Kind)
}

func TestYtdlpExtractorMissingFilename(t *testing.T) {
	executable, _ := fakeYtdlp(t, `echo '{"_type":"video","title":"Song"}'`)

	e := NewYtdlpExtractor(executable, "", nil)
	_, err := e.Extract(context.Background(), ExtractOptions{URL: "https://youtu.be/x", Bitrate: "192", OutputDir: t.TempDir()})
	assert.ErrorContains(t, err, "did not report an output filename")
}

func TestYtdlpExtractorCancelled(t *testing.T) {
	executable, _ := fakeYtdlp(t, "sleep 5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewYtdlpExtractor(executable, "", nil)
	_, err := e.Extract(ctx, ExtractOptions{URL: "https://youtu.be/x", Bitrate: "192", OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)

	var extErr *ExtractorError
	assert.False(t, errors.As(err, &extErr))
}
