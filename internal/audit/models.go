package audit

import (
	"time"

	id "tandapool/pkg/domain"
)

// Event is emitted from domain logic to capture key pool actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	GroupID   id.GroupID     `json:"group_id"`
	Period    id.PeriodIndex `json:"period,omitempty"`
	Actor     id.AccountID   `json:"actor,omitempty"`
	Subject   id.AccountID   `json:"subject,omitempty"`
	Subgroup  id.SubgroupID  `json:"subgroup,omitempty"`
	Action    Action         `json:"action"`
	Amount    int64          `json:"amount,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Action names an audit-worthy pool event.
type Action string

const (
	// Registry events
	ActionGroupCreated       Action = "group_created"
	ActionAdminAdded         Action = "admin_added"
	ActionAdminRemoved       Action = "admin_removed"
	ActionSecretaryRemoved   Action = "secretary_removed"
	ActionSecretaryInstalled Action = "secretary_installed"

	// Membership events
	ActionPolicyholderAdded   Action = "policyholder_added"
	ActionPolicyholderRemoved Action = "policyholder_removed"
	ActionSubgroupChanged     Action = "subgroup_changed"

	// Period events
	ActionPeriodStarted  Action = "period_started"
	ActionGroupStopped   Action = "group_stopped"
	ActionGroupResumed   Action = "group_resumed"
	ActionPremiumPaid    Action = "premium_paid"
	ActionClaimOpened    Action = "claim_opened"
	ActionClaimApproved  Action = "claim_approved"
	ActionClaimRejected  Action = "claim_rejected"
	ActionDefection      Action = "defection"
	ActionSubgroupToxic  Action = "subgroup_toxic"
	ActionClaimPaid      Action = "claim_paid"
	ActionRebatePaid     Action = "rebate_paid"
	ActionPeriodRemitted Action = "period_remitted"

	// Credit events
	ActionLoanIssued      Action = "loan_issued"
	ActionInstallmentPaid Action = "installment_paid"
	ActionLoanRetired     Action = "loan_retired"
	ActionEscrowDeposited Action = "escrow_deposited"
	ActionEscrowWithdrawn Action = "escrow_withdrawn"
)
