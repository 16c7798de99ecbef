package service

import (
	"context"
	"errors"
	"time"

	"tandapool/internal/asset"
	"tandapool/internal/audit"
	"tandapool/internal/group/models"
	"tandapool/internal/group/ports"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/requestcontext"
)

// MakePayment collects the caller's premium, overpayment, and any loan
// installment share for the given period. Admitted only for a current
// policyholder, only during PRE, and only once per period.
func (s *Service) MakePayment(ctx context.Context, groupID id.GroupID, period id.PeriodIndex) error {
	return s.update(ctx, groupID, func(g *models.Group, now time.Time) error {
		actor := requestcontext.Actor(ctx)
		subgroup, ok := g.SubgroupOf(actor)
		if !ok {
			return dErrors.New(dErrors.CodeUnauthorized, "caller is not a policyholder of this group")
		}
		if period != g.CurrentPeriod || period.IsZero() {
			return dErrors.New(dErrors.CodeStateViolation, "payment must target the current period")
		}
		p, ok := g.Current()
		if !ok {
			return dErrors.New(dErrors.CodeStateViolation, "no period in progress")
		}
		if p.SubperiodAt(now) != models.SubperiodPre {
			return dErrors.New(dErrors.CodeSubperiodViolation, "premiums are accepted only during PRE")
		}
		if _, paid := p.PaymentOf(actor); paid {
			return dErrors.New(dErrors.CodeStateViolation, "caller already paid this period")
		}

		premium := g.Premium()
		overpayment := g.Overpayment(g.LiveSubgroupSize(p, subgroup))
		share := loanShare(g)

		// One pull for the whole obligation, then the installment share
		// moves on to the credit recipient. A failed pull rejects the
		// call before any state changes.
		pool := g.PoolAccount()
		if err := s.ledger.TransferFrom(ctx, actor, pool, premium+overpayment+share); err != nil {
			if errors.Is(err, asset.ErrInsufficientFunds) {
				return dErrors.Wrap(err, dErrors.CodeInsufficientFunds, "caller cannot cover the payment")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "premium transfer failed")
		}
		if share > 0 {
			if err := s.ledger.Transfer(ctx, pool, s.credit, share); err != nil {
				// Unwind the pull so a failed forward leaves the caller whole.
				if refundErr := s.ledger.Transfer(ctx, pool, actor, premium+overpayment+share); refundErr != nil && s.logger != nil {
					s.logger.ErrorContext(ctx, "payment unwind failed",
						"group_id", g.ID.String(), "account", actor.String(), "error", refundErr)
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "loan installment forward failed")
			}
		}

		p.Payments = append(p.Payments, models.Payment{
			Account:     actor,
			Subgroup:    subgroup,
			Premium:     premium,
			Overpayment: overpayment,
		})
		p.Pool += premium + overpayment

		if s.metrics != nil {
			s.metrics.PremiumsCollected.Inc()
			s.metrics.PremiumVolume.Add(float64(premium + overpayment))
		}
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID:  g.ID,
			Period:   period,
			Actor:    actor,
			Subgroup: subgroup,
			Action:   audit.ActionPremiumPaid,
			Amount:   premium + overpayment,
		})
		if share > 0 {
			ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
				GroupID: g.ID,
				Period:  period,
				Actor:   actor,
				Action:  audit.ActionInstallmentPaid,
				Amount:  share,
			})
		}
		return nil
	})
}
