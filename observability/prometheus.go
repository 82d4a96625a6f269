package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver turns events into Prometheus series. Every event
// increments deepmanus_events_total. Events carrying a time.Duration under
// "delay" or "duration" also feed the matching histogram.
type PrometheusObserver struct {
	events   *prometheus.CounterVec
	delays   *prometheus.HistogramVec
	duration *prometheus.HistogramVec
}

// NewPrometheusObserver builds the collectors without registering them.
func NewPrometheusObserver() *PrometheusObserver {
	return &PrometheusObserver{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deepmanus",
				Name:      "events_total",
				Help:      "Observability events by type, source and severity.",
			},
			[]string{"type", "source", "level"},
		),
		delays: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "deepmanus",
				Name:      "event_delay_seconds",
				Help:      "Waits reported by retry and rate limiting events.",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"type"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "deepmanus",
				Name:      "event_duration_seconds",
				Help:      "Durations reported by completion events.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
	}
}

// MustRegister registers all collectors with reg.
func (o *PrometheusObserver) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(o.events, o.delays, o.duration)
}

// Register registers all collectors with reg, stopping at the first
// failure.
func (o *PrometheusObserver) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{o.events, o.delays, o.duration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Events exposes the event counter for inspection.
func (o *PrometheusObserver) Events() *prometheus.CounterVec {
	return o.events
}

func (o *PrometheusObserver) OnEvent(_ context.Context, event Event) {
	o.events.WithLabelValues(string(event.Type), event.Source, event.Level.String()).Inc()

	if d, ok := event.Data["delay"].(time.Duration); ok {
		o.delays.WithLabelValues(string(event.Type)).Observe(d.Seconds())
	}
	if d, ok := event.Data["duration"].(time.Duration); ok {
		o.duration.WithLabelValues(string(event.Type)).Observe(d.Seconds())
	}
}
