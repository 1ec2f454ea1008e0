package models

import (
	"path/filepath"
	"time"
)

// DownloadRequest is the form submission handled by a single POST /download
type DownloadRequest struct {
	ID        string    `json:"id"`
	URL       string    `json:"url" form:"url"`
	Bitrate   string    `json:"bitrate" form:"bitrate"`
	VideoID   string    `json:"video_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExtractedMedia is the local audio file produced for a request
type ExtractedMedia struct {
	FilePath  string `json:"file_path"`
	Title     string `json:"title"`
	SizeBytes int64  `json:"size_bytes"`
}

// FileName returns the name the file is served under
func (m *ExtractedMedia) FileName() string {
	return filepath.Base(m.FilePath)
}

// AudioExtension is the extension of every served file
const AudioExtension = ".mp3"

// AudioMIMEType is the content type of every served file
const AudioMIMEType = "audio/mpeg"

// Stats holds request counters exposed on /stats
type Stats struct {
	Requests        int64 `json:"requests"`
	Succeeded       int64 `json:"succeeded"`
	Failed          int64 `json:"failed"`
	InvalidInput    int64 `json:"invalid_input"`
	CleanupFailures int64 `json:"cleanup_failures"`
}

// Stat names
const (
	StatRequests        = "requests"
	StatSucceeded       = "succeeded"
	StatFailed          = "failed"
	StatInvalidInput    = "invalid_input"
	StatCleanupFailures = "cleanup_failures"
)
