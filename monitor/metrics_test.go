package monitor

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.OrdersSubmitted.WithLabelValues("BUY", "LIMIT").Inc()
	m.OrdersRejected.WithLabelValues("price out of range").Inc()
	m.Performance.Set(123.45)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"bot_orders_submitted_total",
		"bot_orders_rejected_total",
		"bot_portfolio_performance 123.45",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetricsRegistriesIndependent(t *testing.T) {
	a, b := New(), New()
	a.OrdersAccepted.Inc()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), "bot_orders_accepted_total 1") {
		t.Error("metrics leaked between registries")
	}
}
