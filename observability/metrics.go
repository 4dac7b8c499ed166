package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SaleMetrics tracks settlement activity: accepted operations and rejected
// calls segmented by error class, so arithmetic/invariant failures stay
// distinguishable from ordinary business-rule rejections.
type SaleMetrics struct {
	purchases     prometheus.Counter
	refunds       prometheus.Counter
	finalizations prometheus.Counter
	rejected      *prometheus.CounterVec
	events        *prometheus.CounterVec
}

var (
	saleMetricsOnce sync.Once
	saleRegistry    *SaleMetrics
)

// Sale returns the lazily-initialised sale metrics registry.
func Sale() *SaleMetrics {
	saleMetricsOnce.Do(func() {
		saleRegistry = &SaleMetrics{
			purchases: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "salechain",
				Subsystem: "sale",
				Name:      "purchases_total",
				Help:      "Count of settled token purchases.",
			}),
			refunds: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "salechain",
				Subsystem: "sale",
				Name:      "refunds_total",
				Help:      "Count of paid depositor refunds.",
			}),
			finalizations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "salechain",
				Subsystem: "sale",
				Name:      "finalizations_total",
				Help:      "Count of completed finalizations.",
			}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "salechain",
				Subsystem: "sale",
				Name:      "rejected_total",
				Help:      "Count of rejected calls segmented by error class.",
			}, []string{"class"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "salechain",
				Subsystem: "sale",
				Name:      "events_total",
				Help:      "Count of emitted settlement events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(
			saleRegistry.purchases,
			saleRegistry.refunds,
			saleRegistry.finalizations,
			saleRegistry.rejected,
			saleRegistry.events,
		)
	})
	return saleRegistry
}

// RecordPurchase counts a settled purchase.
func (m *SaleMetrics) RecordPurchase() { m.purchases.Inc() }

// RecordRefund counts a paid refund.
func (m *SaleMetrics) RecordRefund() { m.refunds.Inc() }

// RecordFinalization counts a completed finalization.
func (m *SaleMetrics) RecordFinalization() { m.finalizations.Inc() }

// RecordRejection counts a rejected call by error class.
func (m *SaleMetrics) RecordRejection(class string) {
	if class == "" {
		return
	}
	m.rejected.WithLabelValues(class).Inc()
}

// RecordEvent counts an emitted settlement event by type.
func (m *SaleMetrics) RecordEvent(eventType string) {
	if eventType == "" {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}
