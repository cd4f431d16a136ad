package metrics

import "github.com/prometheus/client_golang/prometheus"

// Quota Prometheus metrics.
var (
	QuotaSpendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quotaledger",
			Name:      "spends_total",
			Help:      "Total number of spend operations",
		},
		[]string{"status"}, // "ok" / "invalid" / "error"
	)

	QuotaSpentMicrocentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "quotaledger",
			Name:      "spent_microcents_total",
			Help:      "Total cost recorded across all subjects, in microcents",
		},
	)

	QuotaChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quotaledger",
			Name:      "checks_total",
			Help:      "Total number of depletion checks",
		},
		[]string{"result"}, // "ok" / "depleted" / "error"
	)
)

var quotaMetricsRegistered bool

// RegisterQuotaMetrics registers Prometheus quota metrics. Must be called once from main.
func RegisterQuotaMetrics() {
	if quotaMetricsRegistered {
		return
	}
	prometheus.MustRegister(QuotaSpendsTotal)
	prometheus.MustRegister(QuotaSpentMicrocentsTotal)
	prometheus.MustRegister(QuotaChecksTotal)
	quotaMetricsRegistered = true
}
