package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/config"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/logging"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/metrics"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/tracing"
	"github.com/therealutkarshpriyadarshi/yt2mp3/pkg/models"
)

// Download outcomes used for metrics and logs
const (
	OutcomeOK = "ok"
)

// Service orchestrates extraction and output validation
type Service struct {
	extractor Extractor
	fs        afero.Fs
	cfg       config.DownloadConfig
	logger    *logging.Logger
}

// NewService creates a new download service
func NewService(cfg config.DownloadConfig, extractor Extractor, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		extractor: extractor,
		fs:        afero.NewOsFs(),
		cfg:       cfg,
		logger:    logger,
	}
}

// RequestDir is the directory a request's output is written into
func (s *Service) RequestDir(requestID string) string {
	return filepath.Join(s.cfg.Dir, requestID)
}

// Download extracts the audio for req and returns the converted file. Every
// returned error is a *DownloadError. On failure nothing is left on disk.
func (s *Service) Download(ctx context.Context, req *models.DownloadRequest) (*models.ExtractedMedia, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	bitrate := req.Bitrate
	if bitrate == "" {
		bitrate = s.cfg.DefaultBitrate
	}

	span, ctx := tracing.StartSpan(ctx, "downloader.download")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "request_id", req.ID)
	tracing.SetTag(span, "bitrate", bitrate)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	logger := s.logger.WithRequestID(req.ID).WithVideoID(req.VideoID).WithField("bitrate", bitrate)

	metrics.DownloadsInProgress.Inc()
	defer metrics.DownloadsInProgress.Dec()

	start := time.Now()
	media, err := s.download(ctx, req.ID, req.URL, bitrate)
	duration := time.Since(start)

	if err != nil {
		dlErr := Classify(err)
		tracing.LogError(span, dlErr)
		metrics.RecordDownload(string(dlErr.Kind), bitrate, duration.Seconds(), 0)
		logger.LogDownloadEvent("download_failed", string(dlErr.Kind), map[string]interface{}{
			"url":         req.URL,
			"error":       dlErr.Err.Error(),
			"duration_ms": duration.Milliseconds(),
		})
		s.discard(req.ID)
		return nil, dlErr
	}

	metrics.RecordDownload(OutcomeOK, bitrate, duration.Seconds(), media.SizeBytes)
	logger.LogDownloadEvent("download_completed", OutcomeOK, map[string]interface{}{
		"file":        media.FileName(),
		"size_bytes":  media.SizeBytes,
		"duration_ms": duration.Milliseconds(),
	})

	return media, nil
}

func (s *Service) download(ctx context.Context, requestID, url, bitrate string) (*models.ExtractedMedia, error) {
	dir := s.RequestDir(requestID)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result, err := s.extractor.Extract(ctx, ExtractOptions{
		URL:       url,
		Bitrate:   bitrate,
		OutputDir: dir,
	})
	if err != nil {
		return nil, err
	}

	path := ExpectedOutputPath(result.Filename)

	info, err := s.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, outputMissing(path)
		}
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}

	if info.Size() == 0 {
		if rmErr := s.fs.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.WithError(rmErr).Warnf("Failed to remove empty file %s", path)
		}
		return nil, outputEmpty(path)
	}

	return &models.ExtractedMedia{
		FilePath:  path,
		Title:     result.Title,
		SizeBytes: info.Size(),
	}, nil
}

// discard removes whatever a failed request left behind
func (s *Service) discard(requestID string) {
	dir := s.RequestDir(requestID)
	if err := s.fs.RemoveAll(dir); err != nil {
		s.logger.WithError(err).Warnf("Failed to remove request directory %s", dir)
	}
}

// ExpectedOutputPath is the path of the converted file for a pre-conversion
// filename: the same stem with the .mp3 extension.
func ExpectedOutputPath(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + models.AudioExtension
}
