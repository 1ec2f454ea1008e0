package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/downloader"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/metrics"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/middleware"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/validator"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/web"
	"github.com/therealutkarshpriyadarshi/yt2mp3/pkg/models"
)

const bitrateCookie = "bitrate"

// Flash messages for rejected input
const (
	msgInvalidURL     = "Please enter a valid URL."
	msgInvalidVideo   = "Please enter a valid YouTube video URL."
	msgInvalidBitrate = "Please choose a valid bitrate."
	msgRateLimited    = "Too many requests. Please wait a moment and try again."
)

// Form page
func (api *API) index(c *gin.Context) {
	saved, err := c.Cookie(bitrateCookie)
	if err != nil || !lo.Contains(api.cfg.Download.Bitrates, saved) {
		saved = api.cfg.Download.DefaultBitrate
	}

	session := sessions.Default(c)
	flashes := lo.Map(session.Flashes(), func(f interface{}, _ int) string {
		s, _ := f.(string)
		return s
	})
	if len(flashes) > 0 {
		if err := session.Save(); err != nil {
			api.logger.WithError(err).Warn("Failed to clear flashes")
		}
	}

	c.HTML(http.StatusOK, web.IndexTemplate, web.IndexData{
		Flashes:      flashes,
		Bitrates:     api.cfg.Download.Bitrates,
		SavedBitrate: saved,
	})
}

// Download and stream the MP3 for the submitted URL
func (api *API) download(c *gin.Context) {
	var req models.DownloadRequest
	if err := c.ShouldBind(&req); err != nil {
		api.logger.WithError(err).Debug("Failed to bind download form")
	}
	req.URL = strings.TrimSpace(req.URL)
	req.Bitrate = strings.TrimSpace(req.Bitrate)
	req.ID = requestDirID(middleware.GetRequestID(c))
	req.CreatedAt = time.Now()

	api.incrementStat(c.Request.Context(), models.StatRequests)

	if !validator.IsWellFormedURL(req.URL) {
		api.reject(c, "malformed_url", msgInvalidURL)
		return
	}
	if !api.validator.IsRecognizedVideoURL(req.URL) {
		api.reject(c, "unrecognized_host", msgInvalidVideo)
		return
	}
	if req.Bitrate == "" {
		req.Bitrate = api.cfg.Download.DefaultBitrate
	}
	if !lo.Contains(api.cfg.Download.Bitrates, req.Bitrate) {
		api.reject(c, "invalid_bitrate", msgInvalidBitrate)
		return
	}
	req.VideoID = validator.VideoID(req.URL)

	media, err := api.downloader.Download(c.Request.Context(), &req)
	if err != nil {
		api.incrementStat(c.Request.Context(), models.StatFailed)

		dlErr := downloader.Classify(err)
		metrics.RecordError("downloader", string(dlErr.Kind))
		api.flashAndRedirect(c, dlErr.UserMessage)
		return
	}

	api.incrementStat(c.Request.Context(), models.StatSucceeded)

	c.SetCookie(bitrateCookie, req.Bitrate, 0, "/", "", false, false)
	c.Header("Content-Type", models.AudioMIMEType)
	c.FileAttachment(media.FilePath, media.FileName())

	api.scheduler.Schedule(media.FilePath)
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Request counters
func (api *API) getStats(c *gin.Context) {
	snapshot, err := api.stats.Snapshot(c.Request.Context())
	if err != nil {
		api.logger.WithError(err).Error("Failed to read stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stats"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (api *API) rateLimited(c *gin.Context) {
	metrics.RecordInvalidInput("rate_limited")
	api.flashAndRedirect(c, msgRateLimited)
}

func (api *API) reject(c *gin.Context, reason, message string) {
	metrics.RecordInvalidInput(reason)
	api.incrementStat(c.Request.Context(), models.StatInvalidInput)
	api.flashAndRedirect(c, message)
}

func (api *API) flashAndRedirect(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		api.logger.WithError(err).Warn("Failed to save flash message")
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (api *API) incrementStat(ctx context.Context, stat string) {
	if err := api.stats.IncrementStat(ctx, stat); err != nil {
		api.logger.WithError(err).Warnf("Failed to increment stat %s", stat)
	}
}

// requestDirID returns the request id when it is safe to use as a directory
// name, or a fresh UUID otherwise.
func requestDirID(requestID string) string {
	if id, err := uuid.Parse(requestID); err == nil {
		return id.String()
	}
	return uuid.New().String()
}
