package corectx

import (
	"reflect"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Process-wide instrumentation. Grounded on
// jfk9w-hikkabot/metrics/prometheus.go's lazily-registered counter/gauge
// idiom, adapted to a fixed metric set (corectx knows its own shape, unlike
// the teacher's generic Metrics façade) registered once into a dedicated
// *prometheus.Registry rather than the global default registry, so a
// process embedding corectx can mount it at whatever path it likes. The
// registry and its metrics are created once per process.
var (
	metricsOnce           sync.Once
	metricsRegistry       *prometheus.Registry
	contextsLiveGauge     prometheus.Gauge
	outstandingLiveGauge  *prometheus.GaugeVec
	eventsFiredCounter    *prometheus.CounterVec
	eventsDeferredCounter *prometheus.CounterVec
	filterCatchesCounter  *prometheus.CounterVec
)

func ensureMetrics() {
	metricsOnce.Do(func() {
		metricsRegistry = prometheus.NewRegistry()
		contextsLiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "corectx",
			Name:      "contexts_live",
			Help:      "Number of Context nodes currently constructed and not yet shut down.",
		})
		outstandingLiveGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "corectx",
			Name:      "outstanding_live",
			Help:      "Whether a Context's subtree currently has at least one live Runnable (1) or not (0).",
		}, []string{"context_id"})
		eventsFiredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corectx",
			Name:      "events_fired_total",
			Help:      "Synchronous Fire dispatches, by event capability type.",
		}, []string{"event_type"})
		eventsDeferredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corectx",
			Name:      "events_deferred_total",
			Help:      "Asynchronous Defer dispatches, by event capability type.",
		}, []string{"event_type"})
		filterCatchesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corectx",
			Name:      "filter_catches_total",
			Help:      "Exceptions swallowed by an ExceptionFilter, by outcome.",
		}, []string{"outcome"})

		metricsRegistry.MustRegister(
			contextsLiveGauge,
			outstandingLiveGauge,
			eventsFiredCounter,
			eventsDeferredCounter,
			filterCatchesCounter,
		)
	})
}

// MetricsRegistry returns the prometheus.Registry corectx reports into,
// constructing it on first use. Embed it under an HTTP mux with
// promhttp.HandlerFor(corectx.MetricsRegistry(), promhttp.HandlerOpts{}).
func MetricsRegistry() *prometheus.Registry {
	ensureMetrics()
	return metricsRegistry
}

func recordEventFired[E any]() {
	ensureMetrics()
	eventsFiredCounter.WithLabelValues(reflect.TypeOf((*E)(nil)).Elem().String()).Inc()
}

func recordEventDeferred[E any]() {
	ensureMetrics()
	eventsDeferredCounter.WithLabelValues(reflect.TypeOf((*E)(nil)).Elem().String()).Inc()
}

func recordFilterCatch(outcome string) {
	ensureMetrics()
	filterCatchesCounter.WithLabelValues(outcome).Inc()
}
