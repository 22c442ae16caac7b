package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	documentOps     *prometheus.CounterVec
	signatureOps    *prometheus.CounterVec
	indexSyncs      *prometheus.CounterVec
	questionsTotal  prometheus.Counter
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	documentOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "document_operations_total",
		Help: "Document lifecycle operations by kind",
	}, []string{"operation"})

	signatureOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signature_transitions_total",
		Help: "Signature workflow transitions by outcome",
	}, []string{"outcome"})

	indexSyncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "index_syncs_total",
		Help: "Semantic index sync attempts by result",
	}, []string{"result"})

	questionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "questions_total",
		Help: "Natural-language questions answered",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		documentOps, signatureOps, indexSyncs, questionsTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		documentOps:     documentOps,
		signatureOps:    signatureOps,
		indexSyncs:      indexSyncs,
		questionsTotal:  questionsTotal,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup counts one cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordDocumentOperation counts a lifecycle operation (created, updated, viewed).
func (m *MetricsService) RecordDocumentOperation(operation string) {
	if m == nil {
		return
	}
	m.documentOps.WithLabelValues(operation).Inc()
}

// RecordSignatureTransition counts a workflow transition outcome.
func (m *MetricsService) RecordSignatureTransition(outcome string) {
	if m == nil {
		return
	}
	m.signatureOps.WithLabelValues(outcome).Inc()
}

// RecordIndexSync counts one sync attempt result (ok, failed, skipped).
func (m *MetricsService) RecordIndexSync(result string) {
	if m == nil {
		return
	}
	m.indexSyncs.WithLabelValues(result).Inc()
}

// RecordQuestion counts one answered question.
func (m *MetricsService) RecordQuestion() {
	if m == nil {
		return
	}
	m.questionsTotal.Inc()
}
