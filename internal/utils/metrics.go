// internal/utils/metrics.go
package utils

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector collects application metrics
type MetricsCollector struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Counter is updated with atomic operations.
type Counter struct {
	name  string
	value int64
}

// Gauge is updated with atomic operations.
type Gauge struct {
	name  string
	value int64
}

// Histogram tracks count, sum, min and max.
type Histogram struct {
	name  string
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// GetMetricsCollector returns the global metrics collector
func GetMetricsCollector() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsCollector()
	})
	return globalMetrics
}

// NewMetricsCollector returns an empty collector, mostly for tests.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

func (m *MetricsCollector) counter(name string) *Counter {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()
	if exists {
		return counter
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	counter, exists = m.counters[name]
	if !exists {
		counter = &Counter{name: name}
		m.counters[name] = counter
	}
	return counter
}

func (m *MetricsCollector) gauge(name string) *Gauge {
	m.mu.RLock()
	gauge, exists := m.gauges[name]
	m.mu.RUnlock()
	if exists {
		return gauge
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	gauge, exists = m.gauges[name]
	if !exists {
		gauge = &Gauge{name: name}
		m.gauges[name] = gauge
	}
	return gauge
}

func (m *MetricsCollector) IncrementCounter(name string) {
	atomic.AddInt64(&m.counter(name).value, 1)
}

func (m *MetricsCollector) AddCounter(name string, value int64) {
	atomic.AddInt64(&m.counter(name).value, value)
}

func (m *MetricsCollector) SetGauge(name string, value int64) {
	atomic.StoreInt64(&m.gauge(name).value, value)
}

func (m *MetricsCollector) IncGauge(name string) {
	atomic.AddInt64(&m.gauge(name).value, 1)
}

func (m *MetricsCollector) DecGauge(name string) {
	atomic.AddInt64(&m.gauge(name).value, -1)
}

func (m *MetricsCollector) GetGauge(name string) int64 {
	m.mu.RLock()
	gauge, exists := m.gauges[name]
	m.mu.RUnlock()

	if !exists {
		return 0
	}
	return atomic.LoadInt64(&gauge.value)
}

// RecordHistogram records a value in a histogram
func (m *MetricsCollector) RecordHistogram(name string, value int64) {
	m.mu.RLock()
	histogram, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		histogram, exists = m.histograms[name]
		if !exists {
			histogram = &Histogram{name: name, min: value, max: value}
			m.histograms[name] = histogram
		}
		m.mu.Unlock()
	}

	histogram.mu.Lock()
	defer histogram.mu.Unlock()

	histogram.count++
	histogram.sum += value
	if value < histogram.min {
		histogram.min = value
	}
	if value > histogram.max {
		histogram.max = value
	}
}

// GetMetrics returns a snapshot of all metrics
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := make(map[string]interface{})

	counters := make(map[string]int64)
	for name, counter := range m.counters {
		counters[name] = atomic.LoadInt64(&counter.value)
	}
	metrics["counters"] = counters

	gauges := make(map[string]int64)
	for name, gauge := range m.gauges {
		gauges[name] = atomic.LoadInt64(&gauge.value)
	}
	metrics["gauges"] = gauges

	histograms := make(map[string]map[string]int64)
	for name, histogram := range m.histograms {
		histogram.mu.Lock()
		histograms[name] = map[string]int64{
			"count": histogram.count,
			"sum":   histogram.sum,
			"min":   histogram.min,
			"max":   histogram.max,
		}
		histogram.mu.Unlock()
	}
	metrics["histograms"] = histograms

	return metrics
}

func (m *MetricsCollector) GetCounterValue(name string) int64 {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()

	if !exists {
		return 0
	}
	return atomic.LoadInt64(&counter.value)
}

// PipelineMetrics names the metrics recorded by the API and the ingestion pipeline.
type PipelineMetrics struct {
	metrics *MetricsCollector
	logger  *Logger
}

func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		metrics: GetMetricsCollector(),
		logger:  GetLogger(),
	}
}

// NewPipelineMetricsWith is used by tests to observe an isolated collector.
func NewPipelineMetricsWith(m *MetricsCollector, logger *Logger) *PipelineMetrics {
	return &PipelineMetrics{metrics: m, logger: logger}
}

func (pm *PipelineMetrics) Collector() *MetricsCollector {
	return pm.metrics
}

// RecordAPIRequest records metrics for an API request
func (pm *PipelineMetrics) RecordAPIRequest(endpoint, method string, statusCode int, duration time.Duration) {
	pm.metrics.IncrementCounter("api_requests_total")
	pm.metrics.IncrementCounter("api_requests_" + method + "_" + endpoint)
	pm.metrics.RecordHistogram("api_response_time_ms", duration.Milliseconds())
	pm.metrics.IncrementCounter("api_responses_" + strconv.Itoa(statusCode/100) + "xx")

	pm.logger.Debug("API request completed", map[string]interface{}{
		"endpoint": endpoint,
		"method":   method,
		"status":   statusCode,
		"duration": duration.Milliseconds(),
	})
}

// RecordLLMRequest records one remote completion call.
func (pm *PipelineMetrics) RecordLLMRequest(provider, model string, tokensUsed int, duration time.Duration) {
	pm.metrics.IncrementCounter("llm_requests_total")
	pm.metrics.IncrementCounter("llm_requests_" + provider)
	pm.metrics.AddCounter("llm_tokens_total", int64(tokensUsed))
	pm.metrics.RecordHistogram("llm_response_time_ms", duration.Milliseconds())

	pm.logger.Debug("LLM request completed", map[string]interface{}{
		"provider": provider,
		"model":    model,
		"tokens":   tokensUsed,
		"duration": duration.Milliseconds(),
	})
}

// RecordStage records the duration of a pipeline stage.
func (pm *PipelineMetrics) RecordStage(stage string, duration time.Duration) {
	pm.metrics.RecordHistogram("stage_"+stage+"_ms", duration.Milliseconds())
}

// JobStarted and JobFinished track in-flight jobs and their outcomes.
func (pm *PipelineMetrics) JobStarted() {
	pm.metrics.IncrementCounter("jobs_started")
	pm.metrics.IncGauge("jobs_in_flight")
}

func (pm *PipelineMetrics) JobFinished(status string, articles int) {
	pm.metrics.DecGauge("jobs_in_flight")
	pm.metrics.IncrementCounter("jobs_" + status)
	pm.metrics.AddCounter("articles_segmented", int64(articles))
}

// RecordFallback counts a leaf stage that degraded to its default output.
func (pm *PipelineMetrics) RecordFallback(component string) {
	pm.metrics.IncrementCounter("fallbacks_" + component)
}

// RecordError records an error metric
func (pm *PipelineMetrics) RecordError(errorType, component string) {
	pm.metrics.IncrementCounter("errors_total")
	pm.metrics.IncrementCounter("errors_" + errorType)
	pm.metrics.IncrementCounter("errors_" + component)

	pm.logger.Error("Error recorded", map[string]interface{}{
		"type":      errorType,
		"component": component,
	})
}

// StartMetricsCollection logs a metrics summary every interval until ctx ends.
func (pm *PipelineMetrics) StartMetricsCollection(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pm.logger.Info("Periodic metrics report", map[string]interface{}{
					"metrics": pm.metrics.GetMetrics(),
				})
			}
		}
	}()
}
