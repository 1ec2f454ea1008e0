package downloader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind groups download failures by what the user can do about them.
type ErrorKind string

const (
	KindEncoderMissing ErrorKind = "encoder_missing"
	KindUnavailable    ErrorKind = "unavailable"
	KindGeneric        ErrorKind = "generic"
	KindOutputMissing  ErrorKind = "output_missing"
	KindOutputEmpty    ErrorKind = "output_empty"
)

// User-facing messages
const (
	MsgEncoderMissing = "Error: FFmpeg is required but not found. Please install FFmpeg to convert videos to MP3."
	MsgUnavailable    = "Error: This video is unavailable or private."
	MsgOutputMissing  = "Error: Downloaded file was not created. Please check if FFmpeg is installed."
	MsgOutputEmpty    = "Error: The downloaded file is empty. YouTube may be blocking the download. Please try updating yt-dlp."
	msgGenericPrefix  = "Error downloading video: "
)

const maxSnippetRunes = 100

// DownloadError is returned by Service.Download for every failure.
type DownloadError struct {
	Kind        ErrorKind
	UserMessage string
	Err         error
}

func (e *DownloadError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// ExtractorError is a failure reported by the extractor process itself.
type ExtractorError struct {
	Stderr string
	Err    error
}

func (e *ExtractorError) Error() string {
	if line := lastErrorLine(e.Stderr); line != "" {
		return line
	}
	if e.Err == nil {
		return "extractor failed"
	}
	// go-ytdlp appends the full process log to its errors
	msg, _, _ := strings.Cut(e.Err.Error(), "\n")
	return msg
}

func (e *ExtractorError) Unwrap() error {
	return e.Err
}

func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
	}
	return ""
}

// classificationRule maps raw error text to a kind. Rules are evaluated in
// order and the first match wins.
type classificationRule struct {
	kind          ErrorKind
	message       string
	extractorOnly bool
	matches       func(text string) bool
}

var classificationRules = []classificationRule{
	{
		kind:    KindEncoderMissing,
		message: MsgEncoderMissing,
		matches: func(text string) bool {
			return strings.Contains(text, "FFmpeg") || strings.Contains(text, "ffmpeg")
		},
	},
	{
		kind:          KindUnavailable,
		message:       MsgUnavailable,
		extractorOnly: true,
		matches: func(text string) bool {
			return strings.Contains(text, "Private video") || strings.Contains(strings.ToLower(text), "unavailable")
		},
	},
}

// Classify turns any failure into a DownloadError. Errors that already are
// DownloadErrors are returned unchanged.
func Classify(err error) *DownloadError {
	if err == nil {
		return nil
	}

	var dlErr *DownloadError
	if errors.As(err, &dlErr) {
		return dlErr
	}

	var extErr *ExtractorError
	isExtractor := errors.As(err, &extErr)

	// Warnings on stderr mention retries and optional tools; only the
	// reported error decides the kind.
	text := err.Error()
	if isExtractor {
		text = extErr.Error()
	}

	for _, rule := range classificationRules {
		if rule.extractorOnly && !isExtractor {
			continue
		}
		if rule.matches(text) {
			return &DownloadError{Kind: rule.kind, UserMessage: rule.message, Err: err}
		}
	}

	return &DownloadError{
		Kind:        KindGeneric,
		UserMessage: msgGenericPrefix + truncate(text, maxSnippetRunes),
		Err:         err,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func outputMissing(path string) *DownloadError {
	return &DownloadError{
		Kind:        KindOutputMissing,
		UserMessage: MsgOutputMissing,
		Err:         fmt.Errorf("downloaded file not found: %s", path),
	}
}

func outputEmpty(path string) *DownloadError {
	return &DownloadError{
		Kind:        KindOutputEmpty,
		UserMessage: MsgOutputEmpty,
		Err:         fmt.Errorf("downloaded file is empty: %s", path),
	}
}
