package service

import (
	"context"
	"time"

	"tandapool/internal/audit"
	"tandapool/internal/group/models"
	"tandapool/internal/group/ports"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

// SubmitClaim opens a claim for a paid participant. Secretary only, ACTIVE
// only. No volume cap applies at submission; eligibility and the pool's
// capacity are resolved at remittance.
func (s *Service) SubmitClaim(ctx context.Context, groupID id.GroupID, period id.PeriodIndex, claimant id.AccountID) error {
	return s.update(ctx, groupID, func(g *models.Group, now time.Time) error {
		actor, err := s.requireSecretary(ctx, g)
		if err != nil {
			return err
		}
		if period != g.CurrentPeriod || period.IsZero() {
			return dErrors.New(dErrors.CodeStateViolation, "claim must target the current period")
		}
		p, ok := g.Current()
		if !ok {
			return dErrors.New(dErrors.CodeStateViolation, "no period in progress")
		}
		if p.SubperiodAt(now) != models.SubperiodActive {
			return dErrors.New(dErrors.CodeSubperiodViolation, "claims are accepted only during ACTIVE")
		}
		if _, ok := p.ParticipantIndex(claimant); !ok {
			return dErrors.New(dErrors.CodeStateViolation, "claimant has not paid this period")
		}
		if _, claimed := p.ClaimOf(claimant); claimed {
			return dErrors.New(dErrors.CodeStateViolation, "claimant already claimed this period")
		}

		p.Claims = append(p.Claims, models.Claim{
			Claimant: claimant,
			Status:   models.ClaimOpen,
		})

		if s.metrics != nil {
			s.metrics.ClaimsSubmitted.Inc()
		}
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Period:  period,
			Actor:   actor,
			Subject: claimant,
			Action:  audit.ActionClaimOpened,
		})
		return nil
	})
}

// ApproveClaim marks a claim approved. Secretary only, POST only. Funds
// move only at remittance so payout ordering stays deterministic.
func (s *Service) ApproveClaim(ctx context.Context, groupID id.GroupID, claimant id.AccountID) error {
	return s.adjudicate(ctx, groupID, claimant, models.ClaimApproved, audit.ActionClaimApproved)
}

// RejectClaim marks a claim rejected, excluding it from payout.
// Secretary only, POST only.
func (s *Service) RejectClaim(ctx context.Context, groupID id.GroupID, claimant id.AccountID) error {
	return s.adjudicate(ctx, groupID, claimant, models.ClaimRejected, audit.ActionClaimRejected)
}

func (s *Service) adjudicate(ctx context.Context, groupID id.GroupID, claimant id.AccountID, status models.ClaimStatus, action audit.Action) error {
	return s.update(ctx, groupID, func(g *models.Group, now time.Time) error {
		actor, err := s.requireSecretary(ctx, g)
		if err != nil {
			return err
		}
		p, ok := g.Current()
		if !ok {
			return dErrors.New(dErrors.CodeStateViolation, "no period in progress")
		}
		if p.SubperiodAt(now) != models.SubperiodPost {
			return dErrors.New(dErrors.CodeSubperiodViolation, "claims are adjudicated only during POST")
		}
		claim, ok := p.ClaimOf(claimant)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "no claim for this claimant this period")
		}
		if claim.Withdrawn {
			return dErrors.New(dErrors.CodeStateViolation, "claim was withdrawn by defection")
		}
		claim.Status = status

		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Period:  g.CurrentPeriod,
			Actor:   actor,
			Subject: claimant,
			Action:  action,
		})
		return nil
	})
}
