package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the pool core.
type Metrics struct {
	PremiumsCollected prometheus.Counter
	PremiumVolume     prometheus.Counter
	ClaimsSubmitted   prometheus.Counter
	ClaimsPaid        prometheus.Counter
	PayoutVolume      prometheus.Counter
	Defections        prometheus.Counter
	ToxicSubgroups    prometheus.Counter
	Remittances       prometheus.Counter
	RebateVolume      prometheus.Counter
	RemitDuration     prometheus.Histogram
}

// New creates and registers all pool metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a caller-supplied registerer so tests
// can isolate registries.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PremiumsCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_premiums_collected_total",
			Help: "Premium payments accepted across all groups",
		}),
		PremiumVolume: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_premium_volume_total",
			Help: "Asset units collected as premiums and overpayments",
		}),
		ClaimsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_claims_submitted_total",
			Help: "Claims opened across all groups",
		}),
		ClaimsPaid: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_claims_paid_total",
			Help: "Eligible claims paid at remittance",
		}),
		PayoutVolume: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_payout_volume_total",
			Help: "Asset units paid to claimants",
		}),
		Defections: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_defections_total",
			Help: "Participant defections across all groups",
		}),
		ToxicSubgroups: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_toxic_subgroups_total",
			Help: "Subgroups marked toxic by defections in a period",
		}),
		Remittances: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_remittances_total",
			Help: "Periods closed by the remittance engine",
		}),
		RebateVolume: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_rebate_volume_total",
			Help: "Asset units returned to participants as rebates",
		}),
		RemitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tandapool_remit_duration_seconds",
			Help:    "Wall time of the remittance pass",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
