package service

import (
	"context"
	"time"

	"tandapool/internal/audit"
	"tandapool/internal/group/models"
	"tandapool/internal/group/ports"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/requestcontext"
)

// Defect lets an active participant exit the period early during POST.
// The defector is refunded exactly what they paid, their participant and
// claim indices are invalidated, and their subgroup's defection count
// rises; past the threshold the subgroup turns toxic for this period.
// Irreversible within the period.
func (s *Service) Defect(ctx context.Context, groupID id.GroupID, period id.PeriodIndex) error {
	return s.update(ctx, groupID, func(g *models.Group, now time.Time) error {
		actor := requestcontext.Actor(ctx)
		if period != g.CurrentPeriod || period.IsZero() {
			return dErrors.New(dErrors.CodeStateViolation, "defection must target the current period")
		}
		p, ok := g.Current()
		if !ok {
			return dErrors.New(dErrors.CodeStateViolation, "no period in progress")
		}
		if p.SubperiodAt(now) != models.SubperiodPost {
			return dErrors.New(dErrors.CodeSubperiodViolation, "defection is admitted only during POST")
		}
		payment, ok := p.PaymentOf(actor)
		if !ok {
			return dErrors.New(dErrors.CodeUnauthorized, "caller is not a participant in this period")
		}
		if payment.Defected {
			return dErrors.New(dErrors.CodeStateViolation, "caller already defected this period")
		}

		refund := payment.Amount()
		if err := s.ledger.Transfer(ctx, g.PoolAccount(), actor, refund); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "defection refund failed")
		}

		payment.Defected = true
		p.Pool -= refund
		if claim, claimed := p.ClaimOf(actor); claimed && !claim.Withdrawn {
			claim.Withdrawn = true
		}

		subgroup := payment.Subgroup
		wasToxic := p.IsToxic(subgroup)
		p.Defections[subgroup]++

		if s.metrics != nil {
			s.metrics.Defections.Inc()
		}
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID:  g.ID,
			Period:   period,
			Actor:    actor,
			Subgroup: subgroup,
			Action:   audit.ActionDefection,
			Amount:   refund,
		})
		if !wasToxic && p.IsToxic(subgroup) {
			if s.metrics != nil {
				s.metrics.ToxicSubgroups.Inc()
			}
			ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
				GroupID:  g.ID,
				Period:   period,
				Subgroup: subgroup,
				Action:   audit.ActionSubgroupToxic,
				Reason:   "defection threshold exceeded",
			})
		}
		return nil
	})
}
