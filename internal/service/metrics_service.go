package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/daily-update-api/internal/models"
)

var breakerStates = map[string]float64{"closed": 0, "half-open": 1, "open": 2}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	emailsTotal     *prometheus.CounterVec
	emailAttempts   *prometheus.HistogramVec
	emailBatch      prometheus.Histogram
	breakerState    *prometheus.GaugeVec
	quotaUsed       prometheus.Gauge
	updatesTotal    *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	emailSentCount       uint64
	emailFailedCount     uint64
	updateCount          uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	emailsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Emails handed to a transport, by outcome",
	}, []string{"transport", "status"})

	emailAttempts := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "email_send_attempts",
		Help:    "Attempts needed per email",
		Buckets: []float64{1, 2, 3, 4, 5},
	}, []string{"transport"})

	emailBatch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "email_batch_duration_seconds",
		Help:    "Wall time of batch sends",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	breakerState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "email_transport_breaker_state",
		Help: "Circuit breaker state per transport (0 closed, 1 half-open, 2 open)",
	}, []string{"transport"})

	quotaUsed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "email_daily_quota_used",
		Help: "Emails counted against today's quota",
	})

	updatesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "daily_updates_generated_total",
		Help: "Daily updates generated, by source",
	}, []string{"source"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		emailsTotal, emailAttempts, emailBatch, breakerState, quotaUsed, updatesTotal, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		emailsTotal:     emailsTotal,
		emailAttempts:   emailAttempts,
		emailBatch:      emailBatch,
		breakerState:    breakerState,
		quotaUsed:       quotaUsed,
		updatesTotal:    updatesTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the registry for tests and additional collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordEmail counts one email outcome and the attempts it took.
func (m *MetricsService) RecordEmail(transport string, sent bool, attempts int) {
	if m == nil {
		return
	}
	status := "sent"
	if sent {
		atomic.AddUint64(&m.emailSentCount, 1)
	} else {
		status = "failed"
		atomic.AddUint64(&m.emailFailedCount, 1)
	}
	m.emailsTotal.WithLabelValues(transport, status).Inc()
	if attempts > 0 {
		m.emailAttempts.WithLabelValues(transport).Observe(float64(attempts))
	}
}

// ObserveEmailBatch records how long a batch took.
func (m *MetricsService) ObserveEmailBatch(duration time.Duration) {
	if m == nil {
		return
	}
	m.emailBatch.Observe(duration.Seconds())
}

// SetBreakerState publishes a transport's circuit state.
func (m *MetricsService) SetBreakerState(transport, state string) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(transport).Set(breakerStates[state])
}

// SetQuotaUsed publishes today's quota usage.
func (m *MetricsService) SetQuotaUsed(used int) {
	if m == nil {
		return
	}
	m.quotaUsed.Set(float64(used))
}

// RecordDailyUpdates counts generated updates; source is "cache" or "generated".
func (m *MetricsService) RecordDailyUpdates(source string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.updatesTotal.WithLabelValues(source).Add(float64(count))
	atomic.AddUint64(&m.updateCount, uint64(count))
}

// Snapshot returns aggregated metrics for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		EmailsSent:               atomic.LoadUint64(&m.emailSentCount),
		EmailsFailed:             atomic.LoadUint64(&m.emailFailedCount),
		DailyUpdatesGenerated:    atomic.LoadUint64(&m.updateCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
