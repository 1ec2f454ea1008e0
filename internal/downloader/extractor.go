package downloader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

// AudioFormatSelector prefers progressive (non-HLS) audio, m4a first, then webm,
// then any audio, then anything.
const AudioFormatSelector = "bestaudio[protocol!=m3u8][ext=m4a]/bestaudio[protocol!=m3u8][ext=webm]/bestaudio[protocol!=m3u8]/bestaudio/best"

// OutputTemplate names files after the media title.
const OutputTemplate = "%(title)s.%(ext)s"

// ExtractOptions describes a single extraction.
type ExtractOptions struct {
	URL       string
	Bitrate   string
	OutputDir string
}

// ExtractResult is what the extractor reports about the downloaded media.
// Filename is the pre-conversion name; the converted file shares its stem.
type ExtractResult struct {
	Filename string
	Title    string
}

// Extractor downloads a single video's audio and converts it to MP3.
type Extractor interface {
	Extract(ctx context.Context, opts ExtractOptions) (*ExtractResult, error)
}

// YtdlpExtractor runs yt-dlp with its ffmpeg post-processor.
type YtdlpExtractor struct {
	executable    string
	ffmpegPath    string
	playerClients []string
}

// NewYtdlpExtractor creates an extractor. ffmpegPath is handed to yt-dlp as
// --ffmpeg-location unless it is empty or the bare "ffmpeg" PATH lookup.
// playerClients are passed as the youtube player_client extractor argument.
func NewYtdlpExtractor(executable, ffmpegPath string, playerClients []string) *YtdlpExtractor {
	if executable == "" {
		executable = "yt-dlp"
	}
	if ffmpegPath == "ffmpeg" {
		ffmpegPath = ""
	}
	return &YtdlpExtractor{
		executable:    executable,
		ffmpegPath:    ffmpegPath,
		playerClients: playerClients,
	}
}

func (e *YtdlpExtractor) command(opts ExtractOptions) *ytdlp.Command {
	dl := ytdlp.New().
		SetExecutable(e.executable).
		Format(AudioFormatSelector).
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality(opts.Bitrate + "K").
		Output(filepath.Join(opts.OutputDir, OutputTemplate)).
		NoPlaylist().
		NoProgress().
		PrintJSON()

	if e.ffmpegPath != "" {
		dl = dl.FFmpegLocation(e.ffmpegPath)
	}
	if len(e.playerClients) > 0 {
		dl = dl.ExtractorArgs("youtube:player_client=" + strings.Join(e.playerClients, ","))
	}
	return dl
}

// Extract runs yt-dlp for opts.URL.
func (e *YtdlpExtractor) Extract(ctx context.Context, opts ExtractOptions) (*ExtractResult, error) {
	result, err := e.command(opts).Run(ctx, opts.URL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("yt-dlp interrupted: %w", ctxErr)
		}
		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		return nil, &ExtractorError{Stderr: stderr, Err: err}
	}

	infos, err := result.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	if len(infos) == 0 {
		return nil, errors.New("yt-dlp reported no media")
	}

	info := infos[0]
	extracted := &ExtractResult{}
	if info.Filename != nil {
		extracted.Filename = *info.Filename
	}
	if info.Title != nil {
		extracted.Title = *info.Title
	}
	if extracted.Filename == "" {
		return nil, errors.New("yt-dlp did not report an output filename")
	}

	return extracted, nil
}
