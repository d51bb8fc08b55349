package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	CheckoutPlaced   = "placed"
	CheckoutReplayed = "replayed"
	CheckoutRejected = "rejected"
	CheckoutFailed   = "failed"

	PromoApplied     = "applied"
	PromoRejected    = "rejected"
	PromoRateLimited = "rate_limited"

	CommissionCredited = "credited"
	CommissionSkipped  = "skipped"
	CommissionFailed   = "failed"

	OutboxPublished    = "published"
	OutboxFailed       = "failed"
	OutboxDeadLettered = "dead_lettered"
)

// StorefrontMetrics holds the business counters for checkout, promos,
// commissions and outbox delivery.
type StorefrontMetrics struct {
	checkouts   *prometheus.CounterVec
	orderTotal  prometheus.Histogram
	promos      *prometheus.CounterVec
	commissions *prometheus.CounterVec
	outbox      *prometheus.CounterVec
	backlog     prometheus.Gauge
}

// NewStorefrontMetrics registers the storefront metrics on reg. A nil registerer
// returns a collector whose methods do nothing.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	m := &StorefrontMetrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		orderTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_order_total_dzd",
			Help:    "Payable total of placed orders in DZD.",
			Buckets: prometheus.ExponentialBuckets(500, 2, 10),
		}),
		promos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_promo_applications_total",
			Help: "Promo code applications by result.",
		}, []string{"result"}),
		commissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_commissions_total",
			Help: "Commission processing results.",
		}, []string{"result"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_outbox_events_total",
			Help: "Outbox events handled by the publisher.",
		}, []string{"result"}),
		backlog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_outbox_backlog",
			Help: "Outbox events waiting for delivery at the last poll.",
		}),
	}
	reg.MustRegister(m.checkouts, m.orderTotal, m.promos, m.commissions, m.outbox, m.backlog)
	return m
}

func (m *StorefrontMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *StorefrontMetrics) ObserveOrderTotal(total int64) {
	if m == nil || m.orderTotal == nil {
		return
	}
	m.orderTotal.Observe(float64(total))
}

func (m *StorefrontMetrics) IncPromo(result string) {
	if m == nil || m.promos == nil {
		return
	}
	m.promos.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *StorefrontMetrics) IncCommission(result string) {
	if m == nil || m.commissions == nil {
		return
	}
	m.commissions.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *StorefrontMetrics) AddOutbox(result string, n int) {
	if m == nil || m.outbox == nil || n <= 0 {
		return
	}
	m.outbox.WithLabelValues(normalizeLabel(result)).Add(float64(n))
}

func (m *StorefrontMetrics) SetOutboxBacklog(n int64) {
	if m == nil || m.backlog == nil {
		return
	}
	m.backlog.Set(float64(n))
}

// Handler exposes gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// normalizeLabel keeps label values to one spelling per outcome.
func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
