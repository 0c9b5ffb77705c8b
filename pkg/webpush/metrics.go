package webpush

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors for push delivery.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	deliveries *prometheus.CounterVec
	duration   prometheus.Histogram
	cleaned    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg, or with the
// default registerer when reg is nil. Collectors already registered by an
// earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pushkit",
		Name:      "deliveries_total",
		Help:      "Push deliveries by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pushkit",
		Name:      "delivery_duration_seconds",
		Help:      "Duration of HTTP requests to push services.",
		Buckets:   prometheus.DefBuckets,
	})
	cleaned := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pushkit",
		Name:      "subscriptions_cleaned_total",
		Help:      "Subscriptions deleted after the push service reported them gone.",
	})

	m := &Metrics{}
	var err error
	if m.deliveries, err = register(reg, deliveries); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if m.cleaned, err = register(reg, cleaned); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observe(result Result, d time.Duration) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(string(result)).Inc()
	if d > 0 {
		m.duration.Observe(d.Seconds())
	}
}

func (m *Metrics) cleanedOne() {
	if m == nil {
		return
	}
	m.cleaned.Inc()
}
