package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"tandapool/internal/audit"
	"tandapool/internal/group/models"
	"tandapool/internal/group/ports"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

// Remit closes the current period: pays eligible claims in submission
// order, rebates the surplus evenly to still-active participants, retires
// one loan installment, freezes the period, and opens the next one while
// the group stays active. Admitted only for a registry-authorized remitter,
// only once the period has run its full length, and only while the escrow
// gate is not armed.
func (s *Service) Remit(ctx context.Context, groupID id.GroupID) error {
	ctx, span := s.tracer.Start(ctx, "group.Remit")
	defer span.End()
	start := time.Now()

	err := s.update(ctx, groupID, func(g *models.Group, now time.Time) error {
		actor, err := s.requireAdministrator(ctx)
		if err != nil {
			return err
		}
		p, ok := g.Current()
		if !ok {
			return dErrors.New(dErrors.CodeStateViolation, "no period to remit")
		}
		if !p.RemittableAt(now) {
			return dErrors.New(dErrors.CodeSubperiodViolation, "period has not reached its remittance deadline")
		}
		if g.Escrow.Liquid {
			return dErrors.New(dErrors.CodeStateViolation, "escrow gate is armed; withdraw before remitting")
		}

		span.SetAttributes(
			attribute.String("group.id", g.ID.String()),
			attribute.Int("group.period", int(p.Index)),
		)

		// Resolve eligibility in one pass before any transfer so a
		// shortfall rejects the whole call.
		var eligible []id.AccountID
		for _, claim := range p.Claims {
			if claim.Withdrawn || claim.Status == models.ClaimRejected {
				continue
			}
			payment, active := p.PaymentOf(claim.Claimant)
			if !active || payment.Defected {
				continue
			}
			if p.IsToxic(payment.Subgroup) {
				continue
			}
			eligible = append(eligible, claim.Claimant)
		}
		payoutTotal := int64(len(eligible)) * g.PayoutAmount
		if payoutTotal > p.Pool {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"pool %d cannot cover %d eligible claims of %d: premium sizing defect",
				p.Pool, len(eligible), g.PayoutAmount)
		}

		pool := g.PoolAccount()
		for _, claimant := range eligible {
			if err := s.ledger.Transfer(ctx, pool, claimant, g.PayoutAmount); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "claim payout transfer failed")
			}
			ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
				GroupID: g.ID,
				Period:  p.Index,
				Subject: claimant,
				Action:  audit.ActionClaimPaid,
				Amount:  g.PayoutAmount,
			})
		}

		// Surplus splits evenly (floor) across participants whose index
		// survived the period; defectors already took their refund. The
		// floor remainder stays with the group account.
		remaining := p.Pool - payoutTotal
		participants := p.ParticipantCount()
		var rebate int64
		if participants > 0 {
			rebate = remaining / int64(participants)
		}
		if rebate > 0 {
			for _, payment := range p.Payments {
				if payment.Defected {
					continue
				}
				if err := s.ledger.Transfer(ctx, pool, payment.Account, rebate); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "rebate transfer failed")
				}
			}
		}

		p.Pool = 0
		p.Remitted = true

		if g.Loan.Loaned {
			g.Loan.Debt -= g.Loan.Installment
			g.Loan.MonthsRemaining--
			if g.Loan.MonthsRemaining <= 0 || g.Loan.Debt <= 0 {
				g.Loan = models.LoanState{}
				ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
					GroupID: g.ID,
					Period:  p.Index,
					Action:  audit.ActionLoanRetired,
				})
			}
		}

		if g.Active {
			next := g.CurrentPeriod.Next()
			g.Periods[next] = models.NewPeriod(next, now)
			g.CurrentPeriod = next
			ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
				GroupID: g.ID,
				Period:  next,
				Action:  audit.ActionPeriodStarted,
			})
		}

		if s.metrics != nil {
			s.metrics.Remittances.Inc()
			s.metrics.ClaimsPaid.Add(float64(len(eligible)))
			s.metrics.PayoutVolume.Add(float64(payoutTotal))
			s.metrics.RebateVolume.Add(float64(rebate * int64(participants)))
		}
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Period:  p.Index,
			Actor:   actor,
			Action:  audit.ActionPeriodRemitted,
			Amount:  payoutTotal,
		})
		return nil
	})

	if s.metrics != nil {
		s.metrics.RemitDuration.Observe(time.Since(start).Seconds())
	}
	return err
}
