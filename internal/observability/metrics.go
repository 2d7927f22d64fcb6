package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requestDuration  *prometheus.HistogramVec
	requestsTotal    *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	resolutions      *prometheus.CounterVec
	mutations        *prometheus.CounterVec
	sweepClosed      prometheus.Counter
	notifierFailures prometheus.Counter
	queueChanges     *prometheus.CounterVec
	failures         *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdesk_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdesk_http_errors_total",
				Help: "HTTP requests that ended in an error response, by error code",
			},
			[]string{"method", "path", "code"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdesk_resolutions_total",
				Help: "Inbound message resolutions by outcome",
			},
			[]string{"outcome"},
		),
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdesk_mutations_total",
				Help: "Ticket mutations by result",
			},
			[]string{"result"},
		),
		sweepClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatdesk_sweep_closed_total",
			Help: "Tickets closed by the rating cleanup sweep",
		}),
		notifierFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatdesk_notifier_failures_total",
			Help: "Failed calls to the rating automation endpoint",
		}),
		queueChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdesk_queue_changes_total",
				Help: "Recorded queue/agent changes",
			},
			[]string{"suspicious"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdesk_failures_total",
				Help: "Unexpected failures reported to diagnostics",
			},
			[]string{"component"},
		),
	}
}

// RecordRequest observes one served request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(method, path, code).Inc()
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(method, path, code).Inc()
}

// RecordResolution counts a resolution outcome such as "created" or "reopened".
func (m *Metrics) RecordResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// RecordMutation counts a mutation result.
func (m *Metrics) RecordMutation(result string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(result).Inc()
}

// RecordSweep adds the number of tickets a sweep closed.
func (m *Metrics) RecordSweep(closed int) {
	if m == nil || closed <= 0 {
		return
	}
	m.sweepClosed.Add(float64(closed))
}

// RecordNotifierFailure counts a failed automation call.
func (m *Metrics) RecordNotifierFailure() {
	if m == nil {
		return
	}
	m.notifierFailures.Inc()
}

// RecordQueueChange counts a queue change entry.
func (m *Metrics) RecordQueueChange(suspicious bool) {
	if m == nil {
		return
	}
	m.queueChanges.WithLabelValues(strconv.FormatBool(suspicious)).Inc()
}

// RecordFailure counts an unexpected failure of component.
func (m *Metrics) RecordFailure(component string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(component).Inc()
}
