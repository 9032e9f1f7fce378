package prometheus

import "fmt"

// Histogram bucket presets, in seconds unless noted.
var (
	DefaultHTTPDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
	DefaultEngineDurationBuckets = []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05}
	DefaultJobDurationBuckets    = []float64{.005, .01, .05, .1, .5, 1, 5, 10}
	DefaultBatchSizeBuckets      = []float64{1, 2, 5, 10, 20, 50, 100} // items
)

// EngineMetrics holds every metric family MechanismLab records.
type EngineMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec   // method, route, status
	HTTPRequestDuration HistogramVec // method, route
	HTTPActiveRequests  GaugeVec     // (none)

	// Engine operations: parse, analyze, score, profile, batch
	OperationsTotal   CounterVec   // operation, outcome
	OperationDuration HistogramVec // operation

	ClassificationsTotal CounterVec   // category, mechanism
	PredictionsTotal     CounterVec   // primary
	BatchSize            HistogramVec // (none)

	// Caches
	CacheHitsTotal   CounterVec // tier, kind
	CacheMissesTotal CounterVec // tier, kind
	CacheErrorsTotal CounterVec // tier, op

	// Async worker
	JobsTotal        CounterVec   // outcome
	JobDuration      HistogramVec // (none)
	JobRetriesTotal  CounterVec   // topic
	DeadLettersTotal CounterVec   // topic

	ErrorsTotal CounterVec // code
}

// NewEngineMetrics registers the engine metric families on c.
func NewEngineMetrics(c MetricsCollector) (*EngineMetrics, error) {
	if c == nil {
		return nil, fmt.Errorf("prometheus: collector is required")
	}
	return &EngineMetrics{
		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "HTTP requests by route and status.", "method", "route", "status"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request latency.", DefaultHTTPDurationBuckets, "method", "route"),
		HTTPActiveRequests:  c.RegisterGauge("http_active_requests", "In-flight HTTP requests."),

		OperationsTotal:   c.RegisterCounter("operations_total", "Engine operations by outcome.", "operation", "outcome"),
		OperationDuration: c.RegisterHistogram("operation_duration_seconds", "Engine operation latency.", DefaultEngineDurationBuckets, "operation"),

		ClassificationsTotal: c.RegisterCounter("classifications_total", "Structural classifications by category and mechanism.", "category", "mechanism"),
		PredictionsTotal:     c.RegisterCounter("predictions_total", "Condition predictions by primary mechanism.", "primary"),
		BatchSize:            c.RegisterHistogram("batch_size", "Items per batch analysis request.", DefaultBatchSizeBuckets),

		CacheHitsTotal:   c.RegisterCounter("cache_hits_total", "Cache hits.", "tier", "kind"),
		CacheMissesTotal: c.RegisterCounter("cache_misses_total", "Cache misses.", "tier", "kind"),
		CacheErrorsTotal: c.RegisterCounter("cache_errors_total", "Cache backend errors.", "tier", "op"),

		JobsTotal:        c.RegisterCounter("jobs_total", "Analysis jobs processed by outcome.", "outcome"),
		JobDuration:      c.RegisterHistogram("job_duration_seconds", "Analysis job latency.", DefaultJobDurationBuckets),
		JobRetriesTotal:  c.RegisterCounter("job_retries_total", "Analysis job retries.", "topic"),
		DeadLettersTotal: c.RegisterCounter("dead_letters_total", "Messages sent to the dead-letter topic.", "topic"),

		ErrorsTotal: c.RegisterCounter("errors_total", "Errors by code.", "code"),
	}, nil
}

// NewNoopEngineMetrics returns metrics that record nothing.
func NewNoopEngineMetrics() *EngineMetrics {
	m, _ := NewEngineMetrics(NewNoopCollector())
	return m
}

// ObserveOperation records one engine operation. outcome is "ok" or "error".
func (m *EngineMetrics) ObserveOperation(op string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.OperationsTotal.WithLabelValues(op, outcome).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(seconds)
}

// ObserveCache records a cache lookup on the given tier ("l1" or "l2").
func (m *EngineMetrics) ObserveCache(tier, kind string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(tier, kind).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(tier, kind).Inc()
}
