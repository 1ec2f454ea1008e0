package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultSessionSecret is used when no secret is configured. It must be replaced in production.
const DefaultSessionSecret = "change-this-secret-key-in-production"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	Download  DownloadConfig
	Validator ValidatorConfig
	Cleanup   CleanupConfig
	Redis     RedisConfig
	Metrics   MetricsConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// SessionConfig holds the cookie session used for flash messages
type SessionConfig struct {
	Name   string
	Secret string
}

// DownloadConfig holds extractor configuration
type DownloadConfig struct {
	Dir            string
	YtdlpPath      string
	FFmpegPath     string
	DefaultBitrate string
	Bitrates       []string
	PlayerClients  []string
	// Timeout bounds a single extraction. Zero means no limit.
	Timeout time.Duration
}

// ValidatorConfig holds the video host allow-list
type ValidatorConfig struct {
	ShortLinkHosts []string
	VideoHosts     []string
}

// CleanupConfig holds deletion and sweep settings
type CleanupConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	Workers       int
	QueueSize     int
	SweepInterval time.Duration
	MaxAge        time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// MetricsConfig holds the metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds Jaeger configuration
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// RateLimitConfig holds per-client rate limiting for downloads
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// LoggingConfig mirrors logging.Config so it can be read from the config file
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return unmarshal(v)
}

// DefaultPath is read when no config file is named explicitly
const DefaultPath = "config.yaml"

// Resolve loads the config file named by path, then CONFIG_PATH, then
// ./config.yaml. Without any file, defaults and environment variables are used.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		return Load(path)
	}

	if _, err := os.Stat(DefaultPath); err == nil {
		return Load(DefaultPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", DefaultPath, err)
	}

	return Default()
}

// Default returns configuration built only from defaults and environment variables
func Default() (*Config, error) {
	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("YT2MP3")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Same variable the original deployment used for the session secret.
	_ = v.BindEnv("session.secret", "SECRET_KEY", "YT2MP3_SESSION_SECRET")

	setDefaults(v)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that would otherwise fail at request time
func (c *Config) Validate() error {
	if c.Download.Dir == "" {
		return errors.New("download.dir must not be empty")
	}
	if len(c.Download.Bitrates) == 0 {
		return errors.New("download.bitrates must list at least one bitrate")
	}
	found := false
	for _, b := range c.Download.Bitrates {
		if b == c.Download.DefaultBitrate {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("download.defaultBitrate %q is not in download.bitrates", c.Download.DefaultBitrate)
	}
	if c.Cleanup.MaxAttempts < 1 {
		return fmt.Errorf("cleanup.maxAttempts must be at least 1, got %d", c.Cleanup.MaxAttempts)
	}
	if c.Cleanup.Workers < 1 {
		return fmt.Errorf("cleanup.workers must be at least 1, got %d", c.Cleanup.Workers)
	}
	return nil
}

// UsesDefaultSecret reports whether the session secret was left at its insecure default
func (c *Config) UsesDefaultSecret() bool {
	return c.Session.Secret == DefaultSessionSecret
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "0s") // downloads can outlive any fixed write deadline
	v.SetDefault("server.shutdownTimeout", "10s")

	// Session defaults
	v.SetDefault("session.name", "yt2mp3_session")
	v.SetDefault("session.secret", DefaultSessionSecret)

	// Download defaults
	v.SetDefault("download.dir", "downloads")
	v.SetDefault("download.ytdlpPath", "yt-dlp")
	v.SetDefault("download.ffmpegPath", "ffmpeg")
	v.SetDefault("download.defaultBitrate", "192")
	v.SetDefault("download.bitrates", []string{"128", "192", "256", "320"})
	v.SetDefault("download.playerClients", []string{"android", "ios"})
	v.SetDefault("download.timeout", "0s")

	// Validator defaults
	v.SetDefault("validator.shortLinkHosts", []string{"youtu.be"})
	v.SetDefault("validator.videoHosts", []string{
		"youtube.com",
		"www.youtube.com",
		"m.youtube.com",
		"youtube-nocookie.com",
		"www.youtube-nocookie.com",
	})

	// Cleanup defaults
	v.SetDefault("cleanup.maxAttempts", 5)
	v.SetDefault("cleanup.initialDelay", "1s")
	v.SetDefault("cleanup.workers", 2)
	v.SetDefault("cleanup.queueSize", 64)
	v.SetDefault("cleanup.sweepInterval", "1h")
	v.SetDefault("cleanup.maxAge", "24h")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "yt2mp3")
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")

	// Rate limit defaults
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rps", 1)
	v.SetDefault("ratelimit.burst", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}
