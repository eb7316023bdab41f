// Package monitor provides Prometheus metrics for the trading bot.
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the bot's operational metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	OrdersSubmitted *prometheus.CounterVec // by side, type
	OrdersAccepted  prometheus.Counter
	OrdersRejected  *prometheus.CounterVec // by classified reason
	OrdersCancelled prometheus.Counter

	SearchRuns        prometheus.Counter
	SearchEvaluations prometheus.Counter
	WatchdogRecovered prometheus.Counter

	Performance prometheus.Gauge
	Margin      prometheus.Gauge
	InFlight    prometheus.Gauge
	Cash        prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		OrdersSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bot", Subsystem: "orders", Name: "submitted_total",
			Help: "Orders submitted to the venue.",
		}, []string{"side", "type"}),
		OrdersAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bot", Subsystem: "orders", Name: "accepted_total",
			Help: "Limit orders the venue accepted.",
		}),
		OrdersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bot", Subsystem: "orders", Name: "rejected_total",
			Help: "Orders the venue rejected, by classified reason.",
		}, []string{"reason"}),
		OrdersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bot", Subsystem: "orders", Name: "cancelled_total",
			Help: "Cancels the venue accepted.",
		}),
		SearchRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bot", Subsystem: "search", Name: "runs_total",
			Help: "Optimality search executions.",
		}),
		SearchEvaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bot", Subsystem: "search", Name: "evaluations_total",
			Help: "Quote subsets evaluated by the optimality search.",
		}),
		WatchdogRecovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bot", Subsystem: "engine", Name: "watchdog_recoveries_total",
			Help: "Times the watchdog cleared a stuck awaiting-response flag.",
		}),
		Performance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bot", Subsystem: "portfolio", Name: "performance",
			Help: "Current mean-variance performance, dollars.",
		}),
		Margin: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bot", Subsystem: "strategy", Name: "margin_cents",
			Help: "Current quoting margin, cents.",
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bot", Subsystem: "orders", Name: "in_flight",
			Help: "Units believed to be in flight.",
		}),
		Cash: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bot", Subsystem: "portfolio", Name: "cash_cents",
			Help: "Cash balance from the latest holdings snapshot.",
		}),
	}
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background. Empty addr disables
// the server.
func (m *Metrics) Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
