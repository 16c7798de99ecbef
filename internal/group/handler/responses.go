package handler

import (
	"time"

	"tandapool/internal/group/models"
)

// GroupResponse is the read model for GET /groups/{groupID}.
type GroupResponse struct {
	ID            string         `json:"id"`
	Controller    string         `json:"controller"`
	Secretary     string         `json:"secretary,omitempty"`
	ClaimVolume   int            `json:"claim_volume"`
	PayoutAmount  int64          `json:"payout_amount"`
	Active        bool           `json:"active"`
	Subperiod     string         `json:"subperiod"`
	CurrentPeriod uint           `json:"current_period"`
	MemberCount   int            `json:"member_count"`
	Premium       int64          `json:"premium"`
	Pool          int64          `json:"pool"`
	Participants  int            `json:"participants"`
	OpenClaims    int            `json:"open_claims"`
	Loan          LoanResponse   `json:"loan"`
	EscrowLiquid  bool           `json:"escrow_liquid"`
}

type LoanResponse struct {
	Loaned          bool  `json:"loaned"`
	Debt            int64 `json:"debt"`
	MonthsRemaining int   `json:"months_remaining"`
	Installment     int64 `json:"installment"`
}

type PaymentQuoteResponse struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// FromGroup projects the aggregate into its transport shape at an instant.
func FromGroup(g *models.Group, now time.Time) GroupResponse {
	resp := GroupResponse{
		ID:            g.ID.String(),
		Controller:    string(g.Controller.Kind),
		ClaimVolume:   g.ClaimVolume,
		PayoutAmount:  g.PayoutAmount,
		Active:        g.Active,
		Subperiod:     g.SubperiodAt(now).String(),
		CurrentPeriod: uint(g.CurrentPeriod),
		MemberCount:   g.MemberCount(),
		Premium:       g.Premium(),
		EscrowLiquid:  g.Escrow.Liquid,
		Loan: LoanResponse{
			Loaned:          g.Loan.Loaned,
			Debt:            g.Loan.Debt,
			MonthsRemaining: g.Loan.MonthsRemaining,
			Installment:     g.Loan.Installment,
		},
	}
	if g.Controller.Kind == models.ControllerSecretary {
		resp.Secretary = g.Controller.Secretary.String()
	}
	if p, ok := g.Current(); ok {
		resp.Pool = p.Pool
		resp.Participants = p.ParticipantCount()
		resp.OpenClaims = p.ClaimCount()
	}
	return resp
}
