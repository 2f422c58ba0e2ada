package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry and instruments for the service.
// A single registry backs both the HTTP surface and the pipeline workers so
// the combined run mode exposes everything on one /metrics endpoint.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	jobTotal    *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobInFlight prometheus.Gauge
	queueLag    prometheus.Histogram

	sentencesMapped  prometheus.Counter
	mappingsProduced prometheus.Counter
}

// New creates a Metrics with all instruments registered.
func New(service string) *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ttpmap",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ttpmap",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ttpmap",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	jobTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ttpmap",
			Subsystem: "worker",
			Name:      "job_total",
			Help:      "Total processing jobs by outcome.",
		},
		[]string{"service", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ttpmap",
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "Processing job duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	jobInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ttpmap",
			Subsystem: "worker",
			Name:      "jobs_in_flight",
			Help:      "Number of jobs currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ttpmap",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between job submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	sentencesMapped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ttpmap",
			Subsystem: "pipeline",
			Name:      "sentences_total",
			Help:      "Total sentences run through the mapping pipeline.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	mappingsProduced := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ttpmap",
			Subsystem: "pipeline",
			Name:      "mappings_total",
			Help:      "Total accepted technique mappings produced.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal, requestDuration, requestInFlight,
		jobTotal, jobDuration, jobInFlight, queueLag,
		sentencesMapped, mappingsProduced,
	)

	return &Metrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		jobTotal:         jobTotal,
		jobDuration:      jobDuration,
		jobInFlight:      jobInFlight,
		queueLag:         queueLag,
		sentencesMapped:  sentencesMapped,
		mappingsProduced: mappingsProduced,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(service, method, path string, status string, duration time.Duration) {
	m.requestTotal.WithLabelValues(service, method, path, status).Inc()
	m.requestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RequestStarted marks a request in flight; the returned func ends it.
func (m *Metrics) RequestStarted() func() {
	m.requestInFlight.Inc()
	return m.requestInFlight.Dec
}

// StartJob marks a job in flight.
func (m *Metrics) StartJob() {
	m.jobInFlight.Inc()
}

// FinishJob records a completed job with its outcome.
func (m *Metrics) FinishJob(service string, duration time.Duration, err error) {
	m.jobInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.jobTotal.WithLabelValues(service, status).Inc()
	m.jobDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

// ObserveQueueLag records the delay between enqueue and dequeue.
func (m *Metrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}

// ObserveAssembly records pipeline output volume for one report.
func (m *Metrics) ObserveAssembly(sentences, mappings int) {
	m.sentencesMapped.Add(float64(sentences))
	m.mappingsProduced.Add(float64(mappings))
}
