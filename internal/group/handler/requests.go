package handler

import (
	"strings"

	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

// PolicyholderRequest is the body for POST /groups/{groupID}/policyholders.
type PolicyholderRequest struct {
	Account  string `json:"account"`
	Subgroup uint   `json:"subgroup"`

	parsedAccount id.AccountID
}

func (r *PolicyholderRequest) Validate() error {
	r.Account = strings.TrimSpace(r.Account)
	account, err := id.ParseAccountID(r.Account)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	if !id.SubgroupID(r.Subgroup).IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "subgroup must be at least one")
	}
	r.parsedAccount = account
	return nil
}

func (r *PolicyholderRequest) ParsedAccount() id.AccountID   { return r.parsedAccount }
func (r *PolicyholderRequest) ParsedSubgroup() id.SubgroupID { return id.SubgroupID(r.Subgroup) }

// SubgroupRequest is the body for PUT .../policyholders/{account}/subgroup.
type SubgroupRequest struct {
	Subgroup uint `json:"subgroup"`
}

func (r *SubgroupRequest) Validate() error {
	if !id.SubgroupID(r.Subgroup).IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "subgroup must be at least one")
	}
	return nil
}

func (r *SubgroupRequest) ParsedSubgroup() id.SubgroupID { return id.SubgroupID(r.Subgroup) }

// SecretaryRequest is the body for PUT /groups/{groupID}/secretary.
type SecretaryRequest struct {
	Account string `json:"account"`

	parsedAccount id.AccountID
}

func (r *SecretaryRequest) Validate() error {
	account, err := id.ParseAccountID(strings.TrimSpace(r.Account))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	r.parsedAccount = account
	return nil
}

func (r *SecretaryRequest) ParsedAccount() id.AccountID { return r.parsedAccount }

// PeriodRequest targets an operation at a period, guarding against a stale
// client acting on the wrong cycle.
type PeriodRequest struct {
	Period uint `json:"period"`
}

func (r *PeriodRequest) Validate() error {
	if r.Period == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "period is required")
	}
	return nil
}

func (r *PeriodRequest) ParsedPeriod() id.PeriodIndex { return id.PeriodIndex(r.Period) }

// ClaimRequest is the body for POST /groups/{groupID}/claims.
type ClaimRequest struct {
	Period   uint   `json:"period"`
	Claimant string `json:"claimant"`

	parsedClaimant id.AccountID
}

func (r *ClaimRequest) Validate() error {
	if r.Period == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "period is required")
	}
	claimant, err := id.ParseAccountID(strings.TrimSpace(r.Claimant))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "claimant is required")
	}
	r.parsedClaimant = claimant
	return nil
}

func (r *ClaimRequest) ParsedPeriod() id.PeriodIndex  { return id.PeriodIndex(r.Period) }
func (r *ClaimRequest) ParsedClaimant() id.AccountID  { return r.parsedClaimant }
