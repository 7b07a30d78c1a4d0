// internal/metrics/metrics.go
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the storefront collectors. A nil *Metrics records nothing.
type Metrics struct {
	checkouts           *prometheus.CounterVec
	gatewayDuration     *prometheus.HistogramVec
	orphanedSessions    *prometheus.CounterVec
	webhookEvents       *prometheus.CounterVec
	stockDecrementFails prometheus.Counter
	notifications       *prometheus.CounterVec
	importRows          *prometheus.CounterVec
	importJobs          *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		checkouts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Checkout attempts by outcome",
		}, []string{"outcome"}),
		gatewayDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_gateway_request_duration_seconds",
			Help:    "Duration of outbound payment gateway calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider", "operation"}),
		orphanedSessions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_orphaned_sessions_total",
			Help: "Gateway sessions created whose order could not be persisted",
		}, []string{"provider"}),
		webhookEvents: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_webhook_events_total",
			Help: "Inbound webhook events by provider, kind and outcome",
		}, []string{"provider", "kind", "outcome"}),
		stockDecrementFails: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_stock_decrement_failures_total",
			Help: "Stock decrements that failed after a paid transition",
		}),
		notifications: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_notifications_total",
			Help: "Paid order notifications by channel and outcome",
		}, []string{"channel", "outcome"}),
		importRows: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_import_rows_total",
			Help: "Catalog import rows by result",
		}, []string{"result"}),
		importJobs: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_import_jobs_total",
			Help: "Catalog import runs by terminal status",
		}, []string{"status"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

func (m *Metrics) RecordCheckout(outcome string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGatewayCall(provider, operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// RecordOrphanedSession counts a paid-for intent with no order row behind it.
func (m *Metrics) RecordOrphanedSession(provider string) {
	if m == nil {
		return
	}
	m.orphanedSessions.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordWebhookEvent(provider, kind, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(provider, kind, outcome).Inc()
}

func (m *Metrics) RecordStockDecrementFailure() {
	if m == nil {
		return
	}
	m.stockDecrementFails.Inc()
}

func (m *Metrics) RecordNotification(channel, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) RecordImportRow(result string) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordImportJob(status string) {
	if m == nil {
		return
	}
	m.importJobs.WithLabelValues(status).Inc()
}
