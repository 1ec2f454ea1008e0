package main

import (
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/cleanup"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/config"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/downloader"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/logging"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/middleware"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/stats"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/tracing"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/validator"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/web"
)

type API struct {
	cfg         *config.Config
	validator   *validator.Validator
	downloader  *downloader.Service
	scheduler   *cleanup.Scheduler
	stats       stats.Store
	rateLimiter *middleware.RateLimiter
	logger      *logging.Logger
}

func setupRouter(api *API) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)

	store := cookie.NewStore([]byte(api.cfg.Session.Secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 3600})

	// Apply global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(tracing.Middleware())
	router.Use(middleware.Logger(api.logger))
	router.Use(sessions.Sessions(api.cfg.Session.Name, store))

	router.GET("/", api.index)

	downloadChain := []gin.HandlerFunc{}
	if api.rateLimiter != nil {
		downloadChain = append(downloadChain, middleware.RateLimit(api.rateLimiter, api.rateLimited))
	}
	downloadChain = append(downloadChain, api.download)
	router.POST("/download", downloadChain...)

	router.GET("/health", api.healthCheck)
	router.GET("/stats", api.getStats)

	return router, nil
}
