package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yt2mp3_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yt2mp3_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 16), // 5ms to ~3 minutes
		},
		[]string{"method", "endpoint"},
	)

	// Download Metrics
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yt2mp3_downloads_total",
			Help: "Total number of download attempts by outcome",
		},
		[]string{"outcome"},
	)

	DownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yt2mp3_download_duration_seconds",
			Help:    "Time spent extracting and converting audio",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5 minutes
		},
		[]string{"bitrate"},
	)

	DownloadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yt2mp3_download_size_bytes",
			Help:    "Size of produced MP3 files in bytes",
			Buckets: prometheus.ExponentialBuckets(256*1024, 2, 12), // 256KB to 512MB
		},
	)

	DownloadsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yt2mp3_downloads_in_progress",
			Help: "Number of extractions currently running",
		},
	)

	InvalidInputTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yt2mp3_invalid_input_total",
			Help: "Total number of rejected form submissions",
		},
		[]string{"reason"},
	)

	// Cleanup Metrics
	CleanupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yt2mp3_cleanup_total",
			Help: "Total number of file deletions by result",
		},
		[]string{"result"},
	)

	CleanupAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yt2mp3_cleanup_attempts",
			Help:    "Number of attempts needed per deletion",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		},
	)

	CleanupQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yt2mp3_cleanup_queue_depth",
			Help: "Number of deletions waiting or running",
		},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yt2mp3_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint string, status int, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordDownload records the outcome of one extraction
func RecordDownload(outcome, bitrate string, duration float64, sizeBytes int64) {
	DownloadsTotal.WithLabelValues(outcome).Inc()
	DownloadDuration.WithLabelValues(bitrate).Observe(duration)
	if sizeBytes > 0 {
		DownloadSizeBytes.Observe(float64(sizeBytes))
	}
}

// RecordInvalidInput records a rejected submission
func RecordInvalidInput(reason string) {
	InvalidInputTotal.WithLabelValues(reason).Inc()
}

// RecordCleanup records a deletion result and how many attempts it took
func RecordCleanup(result string, attempts int) {
	CleanupTotal.WithLabelValues(result).Inc()
	if attempts > 0 {
		CleanupAttempts.Observe(float64(attempts))
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
