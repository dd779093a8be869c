// Package observability exposes Prometheus instruments for the speech queue.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/queue"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	QueueLength       prometheus.Gauge
	ItemsEnqueued     prometheus.Counter
	ItemStatusChanges *prometheus.CounterVec
	QueueStateChanges *prometheus.CounterVec
	SpeechLatency     prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		QueueLength: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Number of queued or playing speech items.",
		}),
		ItemsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_enqueued_total",
			Help:      "Speech items accepted into the queue.",
		}),
		ItemStatusChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_status_changes_total",
			Help:      "Item status transitions by target status.",
		}, []string{"status"}),
		QueueStateChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_state_changes_total",
			Help:      "Queue state transitions by target state.",
		}, []string{"state"}),
		SpeechLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speech_latency_seconds",
			Help:      "Time from enqueue to playback completion in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// Observe updates instruments from a queue event. It is registered as a
// queue subscriber and must stay non-blocking.
func (m *Metrics) Observe(ev queue.Event) {
	m.QueueLength.Set(float64(ev.QueueLength))

	switch ev.Type {
	case queue.EventItemEnqueued:
		m.ItemsEnqueued.Inc()
	case queue.EventItemStatusChanged:
		m.ItemStatusChanges.WithLabelValues(ev.ItemTo.String()).Inc()
		if ev.ItemTo == speech.StatusCompleted && ev.Item != nil {
			m.SpeechLatency.Observe(time.Since(ev.Item.CreatedAt).Seconds())
		}
	case queue.EventQueueStateChanged:
		m.QueueStateChanges.WithLabelValues(ev.QueueState.String()).Inc()
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
