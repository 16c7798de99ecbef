// Package metrics exposes Prometheus instruments for the credit facility.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LoansIssued       prometheus.Counter
	LoanVolume        prometheus.Counter
	EscrowDeposits    prometheus.Counter
	EscrowWithdrawals prometheus.Counter
}

// New registers the instruments on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the instruments on the given registerer. Tests pass a
// private registry to avoid duplicate registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoansIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_credit_loans_issued_total",
			Help: "Number of loan endowments issued to groups.",
		}),
		LoanVolume: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_credit_loan_volume_total",
			Help: "Total loan principal endowed, in base units.",
		}),
		EscrowDeposits: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_credit_escrow_deposits_total",
			Help: "Number of escrow deposits arming the liquidity gate.",
		}),
		EscrowWithdrawals: factory.NewCounter(prometheus.CounterOpts{
			Name: "tandapool_credit_escrow_withdrawals_total",
			Help: "Number of escrow withdrawals releasing the liquidity gate.",
		}),
	}
}
