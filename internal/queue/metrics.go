package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes queue activity to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	inFlight prometheus.Gauge
	queued   *prometheus.GaugeVec
}

// NewMetrics registers the queue collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livewatch",
			Subsystem: "queue",
			Name:      "requests_total",
			Help:      "Outbound requests by priority tier and outcome.",
		}, []string{"priority", "outcome"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livewatch",
			Subsystem: "queue",
			Name:      "retries_total",
			Help:      "Requests re-enqueued by their retry predicate.",
		}, []string{"priority"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "livewatch",
			Subsystem: "queue",
			Name:      "in_flight",
			Help:      "Requests currently awaiting a response.",
		}),
		queued: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "livewatch",
			Subsystem: "queue",
			Name:      "pending",
			Help:      "Requests waiting for a dispatch slot.",
		}, []string{"priority"}),
	}
}

func (m *Metrics) observe(p Priority, resp *Response) {
	if m == nil {
		return
	}
	outcome := "transport_error"
	switch {
	case resp.OK():
		outcome = "ok"
	case resp != nil:
		outcome = "failed"
	}
	m.requests.WithLabelValues(p.String(), outcome).Inc()
}

func (m *Metrics) retried(p Priority) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(p.String()).Inc()
}

func (m *Metrics) gauges(inFlight, high, low int) {
	if m == nil {
		return
	}
	m.inFlight.Set(float64(inFlight))
	m.queued.WithLabelValues(High.String()).Set(float64(high))
	m.queued.WithLabelValues(Low.String()).Set(float64(low))
}
