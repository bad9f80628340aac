package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the application's prometheus registry. It is injected into
// services and middleware the same way across the codebase.
type Collector struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	workflowTransitions  *prometheus.CounterVec
	documentsUploaded    prometheus.Counter
	documentSize         prometheus.Histogram
	notificationsCreated prometheus.Counter
	commentsCreated      prometheus.Counter
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		workflowTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Document workflow transitions by action.",
		}, []string{"action"}),
		documentsUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "documents_uploaded_total",
			Help: "Documents uploaded.",
		}),
		documentSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "document_size_bytes",
			Help:    "Uploaded document sizes.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		notificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notification rows written.",
		}),
		commentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "comments_created_total",
			Help: "Comments written.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.requestDuration,
		c.workflowTransitions,
		c.documentsUploaded,
		c.documentSize,
		c.notificationsCreated,
		c.commentsCreated,
	)

	return c
}

func (c *Collector) ObserveRequest(method, route, status string, seconds float64) {
	c.httpRequests.WithLabelValues(method, route, status).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(seconds)
}

func (c *Collector) WorkflowTransition(action string) {
	c.workflowTransitions.WithLabelValues(action).Inc()
}

func (c *Collector) DocumentUploaded(sizeBytes int64) {
	c.documentsUploaded.Inc()
	c.documentSize.Observe(float64(sizeBytes))
}

func (c *Collector) NotificationCreated() {
	c.notificationsCreated.Inc()
}

func (c *Collector) CommentCreated() {
	c.commentsCreated.Inc()
}

// Handler exposes the registry for the /metrics route.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
