package service

import (
	"context"
	"time"

	"tandapool/internal/group/models"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

// CalculatePremium returns the base premium owed this period. Side-effect
// free; repeated calls in the same period agree because the rounding is
// fixed (ceiling division over current membership).
func (s *Service) CalculatePremium(ctx context.Context, groupID id.GroupID) (int64, error) {
	var premium int64
	err := s.read(ctx, groupID, func(g *models.Group, _ time.Time) error {
		premium = g.Premium()
		return nil
	})
	return premium, err
}

// CalculateOverpayment returns the surcharge for a subgroup of the given
// live size. Side-effect free.
func (s *Service) CalculateOverpayment(ctx context.Context, groupID id.GroupID, subgroupSize int) (int64, error) {
	var overpayment int64
	err := s.read(ctx, groupID, func(g *models.Group, _ time.Time) error {
		overpayment = g.Overpayment(subgroupSize)
		return nil
	})
	return overpayment, err
}

// CalculatePayment returns everything the caller would owe right now:
// premium, the surcharge for their subgroup's live occupancy, and any loan
// installment share.
func (s *Service) CalculatePayment(ctx context.Context, groupID id.GroupID, account id.AccountID) (int64, error) {
	var total int64
	err := s.read(ctx, groupID, func(g *models.Group, _ time.Time) error {
		subgroup, ok := g.SubgroupOf(account)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "account is not a policyholder")
		}
		p, _ := g.Current()
		total = g.Premium() + g.Overpayment(g.LiveSubgroupSize(p, subgroup)) + loanShare(g)
		return nil
	})
	return total, err
}

// loanShare is the per-member slice of the monthly installment collected
// with each premium while the group carries a loan. Ceiling division: the
// lender is made whole even when membership does not divide the
// installment.
func loanShare(g *models.Group) int64 {
	if !g.Loan.Loaned || g.MemberCount() == 0 {
		return 0
	}
	members := int64(g.MemberCount())
	return (g.Loan.Installment + members - 1) / members
}

// Subperiod reports the group's current time-derived phase.
func (s *Service) Subperiod(ctx context.Context, groupID id.GroupID) (models.Subperiod, error) {
	var sub models.Subperiod
	err := s.read(ctx, groupID, func(g *models.Group, now time.Time) error {
		sub = g.SubperiodAt(now)
		return nil
	})
	return sub, err
}

// PoolBalance reports a period's accumulated pool.
func (s *Service) PoolBalance(ctx context.Context, groupID id.GroupID, period id.PeriodIndex) (int64, error) {
	var pool int64
	err := s.read(ctx, groupID, func(g *models.Group, _ time.Time) error {
		p, ok := g.Periods[period]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "no such period")
		}
		pool = p.Pool
		return nil
	})
	return pool, err
}

// SubgroupSize reports a subgroup's current membership.
func (s *Service) SubgroupSize(ctx context.Context, groupID id.GroupID, subgroup id.SubgroupID) (int, error) {
	var size int
	err := s.read(ctx, groupID, func(g *models.Group, _ time.Time) error {
		size = g.SubgroupSizes[subgroup]
		return nil
	})
	return size, err
}

// DefectionCount reports a subgroup's defections in a period.
func (s *Service) DefectionCount(ctx context.Context, groupID id.GroupID, period id.PeriodIndex, subgroup id.SubgroupID) (int, error) {
	var count int
	err := s.read(ctx, groupID, func(g *models.Group, _ time.Time) error {
		p, ok := g.Periods[period]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "no such period")
		}
		count = p.DefectionCount(subgroup)
		return nil
	})
	return count, err
}

// ParticipantIndex reports an account's dense participant index in a
// period, with an explicit absence flag.
func (s *Service) ParticipantIndex(ctx context.Context, groupID id.GroupID, period id.PeriodIndex, account id.AccountID) (int, bool, error) {
	var (
		index int
		ok    bool
	)
	err := s.read(ctx, groupID, func(g *models.Group, _ time.Time) error {
		p, found := g.Periods[period]
		if !found {
			return dErrors.New(dErrors.CodeNotFound, "no such period")
		}
		index, ok = p.ParticipantIndex(account)
		return nil
	})
	return index, ok, err
}

// LoanState reports the group's credit position.
func (s *Service) LoanState(ctx context.Context, groupID id.GroupID) (models.LoanState, error) {
	var loan models.LoanState
	err := s.read(ctx, groupID, func(g *models.Group, _ time.Time) error {
		loan = g.Loan
		return nil
	})
	return loan, err
}

// EscrowState reports whether the liquidity gate is armed.
func (s *Service) EscrowState(ctx context.Context, groupID id.GroupID) (models.LiquidityGate, error) {
	var gate models.LiquidityGate
	err := s.read(ctx, groupID, func(g *models.Group, _ time.Time) error {
		gate = g.Escrow
		return nil
	})
	return gate, err
}
