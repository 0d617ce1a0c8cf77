package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics mirrors Metrics onto Prometheus collectors. It owns
// its own registry so multiple Router instances in a test process never
// collide on global collector registration.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	messagesRouted       prometheus.Counter
	messagesFailed       prometheus.Counter
	messagesRetried      prometheus.Counter
	deadLettered         *prometheus.CounterVec
	fuelExhaustions      prometheus.Counter
	conversationsExpired prometheus.Counter
	queueRejections      prometheus.Counter
	queueDepth           prometheus.GaugeFunc
}

// NewPrometheusMetrics constructs and registers the collectors backing
// m. depthFn is polled by a GaugeFunc to report current inbound-queue
// depth; pass a func returning 0 if not applicable.
func NewPrometheusMetrics(namespace string, depthFn func() float64) *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	pm := &PrometheusMetrics{
		registry: reg,
		messagesRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_routed_total", Help: "Messages successfully delivered.",
		}),
		messagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_failed_total", Help: "Messages that failed delivery at least once.",
		}),
		messagesRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_retried_total", Help: "Retry attempts scheduled.",
		}),
		deadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "dead_lettered_total", Help: "Messages dead-lettered, by reason.",
		}, []string{"reason"}),
		fuelExhaustions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fuel_exhaustions_total", Help: "Sandboxes halted by fuel exhaustion.",
		}),
		conversationsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "conversations_expired_total", Help: "Conversations removed by idle-timeout sweep.",
		}),
		queueRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "queue_rejections_total", Help: "RouteMessage calls rejected for QueueFull.",
		}),
	}
	pm.queueDepth = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Name: "inbound_queue_depth", Help: "Current inbound queue depth.",
	}, depthFn)

	reg.MustRegister(
		pm.messagesRouted, pm.messagesFailed, pm.messagesRetried,
		pm.deadLettered, pm.fuelExhaustions, pm.conversationsExpired,
		pm.queueRejections, pm.queueDepth,
	)
	return pm
}

// Handler returns an http.Handler serving this registry's metrics.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

func (pm *PrometheusMetrics) RecordRouted()      { pm.messagesRouted.Inc() }
func (pm *PrometheusMetrics) RecordFailed()      { pm.messagesFailed.Inc() }
func (pm *PrometheusMetrics) RecordRetried()     { pm.messagesRetried.Inc() }
func (pm *PrometheusMetrics) RecordDeadLettered(reason string) {
	pm.deadLettered.WithLabelValues(reason).Inc()
}
func (pm *PrometheusMetrics) RecordFuelExhaustion()      { pm.fuelExhaustions.Inc() }
func (pm *PrometheusMetrics) RecordConversationExpired() { pm.conversationsExpired.Inc() }
func (pm *PrometheusMetrics) RecordQueueRejection()      { pm.queueRejections.Inc() }
