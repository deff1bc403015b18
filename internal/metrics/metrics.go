package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_cycles_total", Help: "Signal cycles by outcome"},
		[]string{"outcome"},
	)
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_actions_total", Help: "Decided actions"},
		[]string{"action"},
	)
	LastAlpha = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "signal_last_alpha", Help: "Alpha of the latest cycle"},
	)
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "events_emitted_total", Help: "Events handed to sinks"},
		[]string{"type"},
	)
	SinkErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "event_sink_errors_total", Help: "Failed event deliveries by sink"},
		[]string{"sink"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signal_cycle_duration_seconds",
			Help:    "Wall time of one signal cycle",
			Buckets: prometheus.DefBuckets,
		},
	)
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

func init() {
	prometheus.MustRegister(CyclesTotal, ActionsTotal, LastAlpha, EventsTotal, SinkErrorsTotal, CycleDuration)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
