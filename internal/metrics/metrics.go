package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Messages fully processed, by purpose tag.
	MessagesConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_consumed_total",
		Help: "Messages dequeued and successfully handled, by purpose.",
	}, []string{"purpose"})

	// Messages acknowledged after a handler error.
	HandlerFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "handler_failures_total",
		Help: "Messages whose handler returned an error.",
	})

	// Messages acknowledged without any side effect.
	MessagesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messages_dropped_total",
		Help: "Malformed or unroutable messages dropped without side effects.",
	})

	PublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Write-intent envelopes placed on the broker, by purpose.",
	}, []string{"purpose"})

	StoreWriteSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_write_seconds",
		Help:    "Latency of store write operations, by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// ObserveWrite records the elapsed time of one store write. Meant to be
// deferred at the top of the write: defer ObserveWrite("add_word", time.Now()).
func ObserveWrite(operation string, start time.Time) {
	StoreWriteSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		MessagesConsumed,
		HandlerFailures,
		MessagesDropped,
		PublishedTotal,
		StoreWriteSeconds,
	)
}
