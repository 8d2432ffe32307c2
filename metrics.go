package main

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"placement-engine/models"
)

// Metrics tracks request counters for the JSON endpoint and mirrors them
// into a private Prometheus registry
type Metrics struct {
	mu                sync.RWMutex
	requestCount      int64
	errorCount        int64
	totalResponseTime int64
	placementRuns     map[models.Mode]int64
	startTime         time.Time

	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	runs            *prometheus.CounterVec
	optimizeSeconds *prometheus.HistogramVec
}

type MetricsResponse struct {
	System      SystemMetrics      `json:"system"`
	Application ApplicationMetrics `json:"application"`
	Feed        FeedMetrics        `json:"feed"`
	Database    *DatabaseMetrics   `json:"database,omitempty"`
	Uptime      string             `json:"uptime"`
}

type SystemMetrics struct {
	GoVersion     string  `json:"go_version"`
	NumGoroutines int     `json:"num_goroutines"`
	NumCPU        int     `json:"num_cpu"`
	MemAllocMB    float64 `json:"mem_alloc_mb"`
	MemSysMB      float64 `json:"mem_sys_mb"`
	NumGC         uint32  `json:"num_gc"`
}

type ApplicationMetrics struct {
	TotalRequests     int64            `json:"total_requests"`
	TotalErrors       int64            `json:"total_errors"`
	ErrorRate         float64          `json:"error_rate_percent"`
	AvgResponseTime   float64          `json:"avg_response_time_ms"`
	RequestsPerSecond float64          `json:"requests_per_second"`
	PlacementRuns     map[string]int64 `json:"placement_runs"`
}

type FeedMetrics struct {
	Configured bool `json:"configured"`
	CacheSize  int  `json:"cache_size"`
}

type DatabaseMetrics struct {
	MaxConns     int32 `json:"max_connections"`
	AcquireCount int64 `json:"acquire_count"`
	IdleConns    int32 `json:"idle_connections"`
	TotalConns   int32 `json:"total_connections"`
}

func NewMetrics() *Metrics {
	m := &Metrics{
		placementRuns: make(map[models.Mode]int64),
		startTime:     time.Now(),
		registry:      prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placement_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "placement_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placement_runs_total",
				Help: "Completed placement optimizations by mode",
			},
			[]string{"mode"},
		),
		optimizeSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "placement_optimize_duration_seconds",
				Help:    "Time spent in the grid search by mode",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"mode"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.runs,
		m.optimizeSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records one finished request
func (m *Metrics) Observe(route string, status int, duration time.Duration) {
	m.mu.Lock()
	m.requestCount++
	if status >= http.StatusInternalServerError {
		m.errorCount++
	}
	m.totalResponseTime += duration.Milliseconds()
	m.mu.Unlock()

	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ObservePlacement records one optimizer call
func (m *Metrics) ObservePlacement(mode models.Mode, duration time.Duration) {
	m.mu.Lock()
	m.placementRuns[mode]++
	m.mu.Unlock()

	m.runs.WithLabelValues(string(mode)).Inc()
	m.optimizeSeconds.WithLabelValues(string(mode)).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	s.metrics.mu.RLock()
	requestCount := s.metrics.requestCount
	errorCount := s.metrics.errorCount
	totalResponseTime := s.metrics.totalResponseTime
	startTime := s.metrics.startTime
	runs := make(map[string]int64, len(s.metrics.placementRuns))
	for mode, n := range s.metrics.placementRuns {
		runs[string(mode)] = n
	}
	s.metrics.mu.RUnlock()

	uptime := time.Since(startTime)
	uptimeSeconds := uptime.Seconds()

	var errorRate float64
	if requestCount > 0 {
		errorRate = (float64(errorCount) / float64(requestCount)) * 100
	}

	var avgResponseTime float64
	if requestCount > 0 {
		avgResponseTime = float64(totalResponseTime) / float64(requestCount)
	}

	var requestsPerSecond float64
	if uptimeSeconds > 0 {
		requestsPerSecond = float64(requestCount) / uptimeSeconds
	}

	response := MetricsResponse{
		System: SystemMetrics{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			NumCPU:        runtime.NumCPU(),
			MemAllocMB:    float64(memStats.Alloc) / 1024 / 1024,
			MemSysMB:      float64(memStats.Sys) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Application: ApplicationMetrics{
			TotalRequests:     requestCount,
			TotalErrors:       errorCount,
			ErrorRate:         errorRate,
			AvgResponseTime:   avgResponseTime,
			RequestsPerSecond: requestsPerSecond,
			PlacementRuns:     runs,
		},
		Uptime: formatUptime(uptime),
	}

	if s.feed != nil {
		response.Feed = FeedMetrics{Configured: s.feed.Configured(), CacheSize: s.feed.CacheSize()}
	}

	if s.db != nil {
		dbStats := s.db.Stat()
		response.Database = &DatabaseMetrics{
			MaxConns:     dbStats.MaxConns(),
			AcquireCount: dbStats.AcquireCount(),
			IdleConns:    dbStats.IdleConns(),
			TotalConns:   dbStats.TotalConns(),
		}
	}

	writeJSON(w, response)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
