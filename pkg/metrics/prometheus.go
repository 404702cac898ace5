// Package metrics provides Prometheus metrics for the dengue simulator.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default bucket layouts. Latencies are in milliseconds, run durations in
// seconds; full-scale runs take minutes.
var (
	defaultLatencyBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000} //nolint:gochecknoglobals // static bucket layout
	defaultRunBuckets     = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800} //nolint:gochecknoglobals // static bucket layout
)

// Manager manages all Prometheus metrics for the simulator.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	runBuckets     []float64
	constLabels    map[string]string
	metricPrefix   string
	registry       prometheus.Registerer

	// Simulation Metrics - What the epidemic is doing
	simulatedDays      prometheus.Counter
	tickLatency        prometheus.Histogram
	newInfections      *prometheus.CounterVec
	newSymptomatic     *prometheus.CounterVec
	newSevere          *prometheus.CounterVec
	introductions      *prometheus.CounterVec
	mosquitoesInfected prometheus.Counter
	mosquitoesCulled   prometheus.Counter
	vaccinations       prometheus.Counter
	exposedMosquitoes  prometheus.Gauge
	infectiousMosq     prometheus.Gauge
	exposedHumans      prometheus.Gauge
	mosquitoMultiplier prometheus.Gauge

	// Run Metrics - Batch throughput
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runsFailed    prometheus.Counter
	runsDuplicate prometheus.Counter
	runDuration   prometheus.Histogram

	// Queue Metrics - Run request queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics - Processing performance
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Repository Metrics - Results store
	repositoryRunsTotal    prometheus.Gauge
	repositoryWriteLatency prometheus.Histogram

	// HTTP Metrics - Status endpoint
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "dengue",
		subsystem:      "sim",
		latencyBuckets: defaultLatencyBuckets,
		runBuckets:     defaultRunBuckets,
		constLabels:    map[string]string{},
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Simulation Metrics
	m.simulatedDays = m.counter("simulated_days_total", "Total number of simulated days across all runs")
	m.tickLatency = m.histogram("tick_latency_milliseconds", "Wall time of one simulated day in milliseconds", m.latencyBuckets)
	m.newInfections = m.counterVec("infections_total", "New human infections by serotype", "serotype")
	m.newSymptomatic = m.counterVec("symptomatic_total", "New symptomatic cases by serotype", "serotype")
	m.newSevere = m.counterVec("severe_total", "New severe cases by serotype", "serotype")
	m.introductions = m.counterVec("introductions_total", "Forced or imported infections by serotype", "serotype")
	m.mosquitoesInfected = m.counter("mosquitoes_infected_total", "Susceptible mosquitoes infected by people")
	m.mosquitoesCulled = m.counter("mosquitoes_culled_total", "Mosquitoes removed by capacity reduction or vector control")
	m.vaccinations = m.counter("vaccine_doses_total", "Vaccine doses given")
	m.exposedMosquitoes = m.gauge("exposed_mosquitoes", "Exposed mosquitoes in the last reported run")
	m.infectiousMosq = m.gauge("infectious_mosquitoes", "Infectious mosquitoes in the last reported run")
	m.exposedHumans = m.gauge("exposed_humans", "People in incubation in the last reported run")
	m.mosquitoMultiplier = m.gauge("mosquito_multiplier", "Seasonal mosquito capacity multiplier in the last reported run")

	// Run Metrics
	m.runsStarted = m.counter("runs_started_total", "Simulation runs started")
	m.runsCompleted = m.counter("runs_completed_total", "Simulation runs completed")
	m.runsFailed = m.counter("runs_failed_total", "Simulation runs that returned an error")
	m.runsDuplicate = m.counter("runs_duplicate_total", "Run requests skipped because their fingerprint was already seen")
	m.runDuration = m.histogram("run_duration_seconds", "Wall time of one simulation run in seconds", m.runBuckets)

	// Queue Metrics
	m.queueSize = m.gauge("queue_size", "Current number of pending run requests")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of run requests enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of run requests dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time a request waited in the queue in milliseconds", m.latencyBuckets)

	// Worker Metrics
	m.workerCount = m.gauge("worker_count", "Configured number of run workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers executing a run")
	m.workerIdleCount = m.gauge("worker_idle_count", "Number of idle workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds", m.latencyBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of worker errors")

	// Repository Metrics
	m.repositoryRunsTotal = m.gauge("repository_runs_total", "Runs persisted in the results store")
	m.repositoryWriteLatency = m.histogram("repository_write_latency_milliseconds", "Results store write latency in milliseconds", m.latencyBuckets)

	// HTTP Metrics
	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests to the status server", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets, "endpoint", "method", "status_code")

	// Error Metrics
	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
}

// Simulation Metrics Functions.

// RecordSimulatedDay counts one simulated day and its wall time.
func RecordSimulatedDay(latencyMs float64) {
	globalManager.simulatedDays.Inc()
	globalManager.tickLatency.Observe(latencyMs)
}

// RecordInfections adds n new infections of serotype.
func RecordInfections(serotype, n int) {
	if n > 0 {
		globalManager.newInfections.WithLabelValues(strconv.Itoa(serotype)).Add(float64(n))
	}
}

// RecordSymptomatic adds n new symptomatic cases of serotype.
func RecordSymptomatic(serotype, n int) {
	if n > 0 {
		globalManager.newSymptomatic.WithLabelValues(strconv.Itoa(serotype)).Add(float64(n))
	}
}

// RecordSevere adds n new severe cases of serotype.
func RecordSevere(serotype, n int) {
	if n > 0 {
		globalManager.newSevere.WithLabelValues(strconv.Itoa(serotype)).Add(float64(n))
	}
}

// RecordIntroduction counts one forced infection of serotype.
func RecordIntroduction(serotype int) {
	globalManager.introductions.WithLabelValues(strconv.Itoa(serotype)).Inc()
}

// RecordMosquitoInfected counts one human-to-mosquito transmission.
func RecordMosquitoInfected() {
	globalManager.mosquitoesInfected.Inc()
}

// RecordMosquitoesCulled adds n culled mosquitoes.
func RecordMosquitoesCulled(n int) {
	if n > 0 {
		globalManager.mosquitoesCulled.Add(float64(n))
	}
}

// RecordVaccinations adds n vaccine doses.
func RecordVaccinations(n int) {
	if n > 0 {
		globalManager.vaccinations.Add(float64(n))
	}
}

// UpdateMosquitoGauges sets the queue occupancy gauges.
func UpdateMosquitoGauges(exposed, infectious, exposedHumans int) {
	globalManager.exposedMosquitoes.Set(float64(exposed))
	globalManager.infectiousMosq.Set(float64(infectious))
	globalManager.exposedHumans.Set(float64(exposedHumans))
}

// UpdateMosquitoMultiplier sets the current seasonal multiplier.
func UpdateMosquitoMultiplier(f float64) {
	globalManager.mosquitoMultiplier.Set(f)
}

// Run Metrics Functions.

// RecordRunStarted increments the started runs counter.
func RecordRunStarted() {
	globalManager.runsStarted.Inc()
}

// RecordRunCompleted counts a finished run and its duration.
func RecordRunCompleted(d time.Duration) {
	globalManager.runsCompleted.Inc()
	globalManager.runDuration.Observe(d.Seconds())
}

// RecordRunFailed increments the failed runs counter.
func RecordRunFailed() {
	globalManager.runsFailed.Inc()
}

// RecordRunDuplicate increments the duplicate requests counter.
func RecordRunDuplicate() {
	globalManager.runsDuplicate.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue waiting latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Repository Metrics Functions.

// UpdateRepositoryRunsTotal sets the number of persisted runs.
func UpdateRepositoryRunsTotal(count int) {
	globalManager.repositoryRunsTotal.Set(float64(count))
}

// RecordRepositoryWriteLatency records a results store write.
func RecordRepositoryWriteLatency(latencyMs float64) {
	globalManager.repositoryWriteLatency.Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest counts one request to the status server.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records the duration of one status server request.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
