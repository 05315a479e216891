package monitor

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Metrics represents all the application metrics
type Metrics struct {
	// Conversion metrics
	ConversionsTotal   *prometheus.CounterVec
	ConversionsSuccess *prometheus.CounterVec
	ConversionsFailed  *prometheus.CounterVec
	ConversionDuration *prometheus.HistogramVec

	// Parser gateway metrics
	ParseRequests *prometheus.CounterVec
	ParseErrors   *prometheus.CounterVec
	ParseDuration *prometheus.HistogramVec

	// Upload gateway metrics
	UploadRetries  *prometheus.CounterVec
	UploadDuration *prometheus.HistogramVec
	UploadBytes    *prometheus.HistogramVec

	// System metrics
	Goroutines  prometheus.Gauge
	MemoryUsage prometheus.Gauge

	// Active conversions
	ActiveConversions prometheus.Gauge
	BatchQueueSize    prometheus.Gauge
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		ConversionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_saver_conversions_total",
				Help: "Total number of conversion attempts",
			},
			[]string{"media_type"},
		),

		ConversionsSuccess: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_saver_conversions_success_total",
				Help: "Total number of successful conversions",
			},
			[]string{"media_type"},
		),

		ConversionsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_saver_conversions_failed_total",
				Help: "Total number of failed conversions",
			},
			[]string{"media_type", "error_type"},
		),

		ConversionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "media_saver_conversion_duration_seconds",
				Help:    "Time spent converting a share link end to end",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"media_type"},
		),

		ParseRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_saver_parse_requests_total",
				Help: "Total requests to parser APIs",
			},
			[]string{"parser"},
		),

		ParseErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_saver_parse_errors_total",
				Help: "Total errors from parser APIs",
			},
			[]string{"parser", "error_type"},
		),

		ParseDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "media_saver_parse_duration_seconds",
				Help:    "Time spent on parser API calls",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"parser"},
		),

		UploadRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_saver_upload_retries_total",
				Help: "Total upload retry attempts",
			},
			[]string{"reason"},
		),

		UploadDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "media_saver_upload_duration_seconds",
				Help:    "Time spent transferring media to WebDAV",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"media_type"},
		),

		UploadBytes: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "media_saver_upload_size_bytes",
				Help:    "Size of uploaded media files",
				Buckets: []float64{1e5, 1e6, 1e7, 1e8, 1e9}, // 100KB to 1GB
			},
			[]string{"media_type"},
		),

		Goroutines: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "media_saver_goroutines",
			Help: "Number of goroutines",
		}),

		MemoryUsage: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "media_saver_memory_usage_bytes",
			Help: "Memory usage in bytes",
		}),

		ActiveConversions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "media_saver_active_conversions",
			Help: "Number of conversions currently running",
		}),

		BatchQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "media_saver_batch_queue_size",
			Help: "Number of tasks waiting in the current batch",
		}),
	}
}

// Monitor represents the monitoring system
type Monitor struct {
	metrics  *Metrics
	logger   zerolog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewMonitor creates a new monitor instance
func NewMonitor() *Monitor {
	return &Monitor{
		metrics:  NewMetrics(),
		logger:   zerolog.New(os.Stdout).With().Timestamp().Str("component", "monitor").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start starts the monitoring system
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.collectSystemMetrics()

	m.logger.Info().Msg("Monitoring system started")
}

// Stop stops the monitoring system
func (m *Monitor) Stop() {
	close(m.stopChan)
	m.wg.Wait()

	m.logger.Info().Msg("Monitoring system stopped")
}

// collectSystemMetrics collects system metrics periodically
func (m *Monitor) collectSystemMetrics() {
	defer m.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Update goroutine count
			m.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

			// Update memory usage
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			m.metrics.MemoryUsage.Set(float64(memStats.Alloc))

		case <-m.stopChan:
			return
		}
	}
}

// RecordConversionStart records the start of a conversion
func (m *Monitor) RecordConversionStart(mediaType string) {
	m.metrics.ConversionsTotal.WithLabelValues(mediaType).Inc()
	m.metrics.ActiveConversions.Inc()
}

// RecordConversionSuccess records a successful conversion
func (m *Monitor) RecordConversionSuccess(mediaType string, duration time.Duration) {
	m.metrics.ConversionsSuccess.WithLabelValues(mediaType).Inc()
	m.metrics.ConversionDuration.WithLabelValues(mediaType).Observe(duration.Seconds())
	m.metrics.ActiveConversions.Dec()
}

// RecordConversionFailure records a failed conversion
func (m *Monitor) RecordConversionFailure(mediaType, errorType string, duration time.Duration) {
	m.metrics.ConversionsFailed.WithLabelValues(mediaType, errorType).Inc()
	m.metrics.ConversionDuration.WithLabelValues(mediaType).Observe(duration.Seconds())
	m.metrics.ActiveConversions.Dec()
}

// RecordParseRequest records a parser API request
func (m *Monitor) RecordParseRequest(parser string, duration time.Duration) {
	m.metrics.ParseRequests.WithLabelValues(parser).Inc()
	m.metrics.ParseDuration.WithLabelValues(parser).Observe(duration.Seconds())
}

// RecordParseError records a parser API error
func (m *Monitor) RecordParseError(parser, errorType string) {
	m.metrics.ParseErrors.WithLabelValues(parser, errorType).Inc()
}

// RecordUploadRetry records an upload retry attempt
func (m *Monitor) RecordUploadRetry(reason string) {
	m.metrics.UploadRetries.WithLabelValues(reason).Inc()
}

// RecordUpload records a completed upload
func (m *Monitor) RecordUpload(mediaType string, duration time.Duration, size int64) {
	m.metrics.UploadDuration.WithLabelValues(mediaType).Observe(duration.Seconds())
	if size > 0 {
		m.metrics.UploadBytes.WithLabelValues(mediaType).Observe(float64(size))
	}
}

// UpdateBatchQueueSize updates the batch queue size metric
func (m *Monitor) UpdateBatchQueueSize(size int) {
	m.metrics.BatchQueueSize.Set(float64(size))
}

// GetMetrics returns all metrics
func (m *Monitor) GetMetrics() *Metrics {
	return m.metrics
}

// GetLogger returns the logger
func (m *Monitor) GetLogger() zerolog.Logger {
	return m.logger
}

// SetLogger sets the logger
func (m *Monitor) SetLogger(logger zerolog.Logger) {
	m.logger = logger
}

// HealthCheck performs a health check
func (m *Monitor) HealthCheck() map[string]interface{} {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return map[string]interface{}{
		"goroutines":   runtime.NumGoroutine(),
		"memory_usage": memStats.Alloc,
		"memory_sys":   memStats.Sys,
		"gc_cycles":    memStats.NumGC,
	}
}
