package models

import (
	"fmt"
	"time"

	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

// Subperiod is the phase of a group's current period. It is derived from
// elapsed time, never stored, so stored state cannot drift from the clock.
type Subperiod int

const (
	SubperiodLobby Subperiod = iota
	SubperiodPre
	SubperiodActive
	SubperiodPost
	SubperiodEnded
)

func (s Subperiod) String() string {
	switch s {
	case SubperiodLobby:
		return "LOBBY"
	case SubperiodPre:
		return "PRE"
	case SubperiodActive:
		return "ACTIVE"
	case SubperiodPost:
		return "POST"
	case SubperiodEnded:
		return "ENDED"
	}
	return fmt.Sprintf("Subperiod(%d)", int(s))
}

// Subperiod thresholds, measured from the period's start. Configuration
// constants of the deployment, not per-group state.
const (
	// PremiumWindow closes the PRE subperiod: premiums are due in the
	// first three days.
	PremiumWindow = 3 * 24 * time.Hour
	// ClaimWindow closes the ACTIVE subperiod: claims open between day
	// three and day twenty-seven.
	ClaimWindow = 27 * 24 * time.Hour
	// PeriodLength is when the period becomes remittable. POST runs from
	// the claim window's close until remittance actually happens, so late
	// defections before the remitter shows up still count.
	PeriodLength = 30 * 24 * time.Hour
)

// MaxSubgroupDefections is how many defections a subgroup tolerates per
// period before its claims become ineligible.
const MaxSubgroupDefections = 1

// ControllerKind discriminates who exercises secretary rights for a group.
type ControllerKind string

const (
	// ControllerSecretary: a live secretary account controls the group.
	ControllerSecretary ControllerKind = "secretary"
	// ControllerRegistry: the secretary was removed and the registry holds
	// control until a replacement is installed.
	ControllerRegistry ControllerKind = "registry"
)

// Controller is a sum type over {Secretary(account), RegistryControlled}.
// Modeled explicitly instead of a sentinel account so "no secretary" can
// never be confused with a real address.
type Controller struct {
	Kind      ControllerKind
	Secretary id.AccountID
}

// SecretaryController returns a controller held by the given account.
func SecretaryController(secretary id.AccountID) Controller {
	return Controller{Kind: ControllerSecretary, Secretary: secretary}
}

// RegistryController returns a controller held by the registry.
func RegistryController() Controller {
	return Controller{Kind: ControllerRegistry}
}

// Holds reports whether actor currently exercises secretary rights.
// registryAccount is the account the registry acts through.
func (c Controller) Holds(actor, registryAccount id.AccountID) bool {
	switch c.Kind {
	case ControllerSecretary:
		return actor == c.Secretary
	case ControllerRegistry:
		return actor == registryAccount
	}
	return false
}

// Payee returns the account loan endowments and escrow withdrawals go to.
func (c Controller) Payee(registryAccount id.AccountID) id.AccountID {
	if c.Kind == ControllerSecretary {
		return c.Secretary
	}
	return registryAccount
}

// Payment records one policyholder's premium for a period. The slice
// position (plus one) is the dense participant index; Defected marks the
// index invalidated without renumbering later participants.
type Payment struct {
	Account     id.AccountID `json:"account"`
	Subgroup    id.SubgroupID `json:"subgroup"`
	Premium     int64        `json:"premium"`
	Overpayment int64        `json:"overpayment"`
	Defected    bool         `json:"defected"`
}

// Amount is the total the payer put into the pool.
func (p Payment) Amount() int64 {
	return p.Premium + p.Overpayment
}

// ClaimStatus tracks adjudication of a claim. Submitted claims start OPEN
// and pay out unless rejected; the reference deployment pays a claim the
// secretary never touched.
type ClaimStatus string

const (
	ClaimOpen     ClaimStatus = "open"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
)

// Claim records one claim submission for a period, in submission order.
type Claim struct {
	Claimant  id.AccountID `json:"claimant"`
	Status    ClaimStatus  `json:"status"`
	Withdrawn bool         `json:"withdrawn"` // claimant defected
}

// Period is one insurance cycle of a group. Created lazily at start, frozen
// once Remitted; never deleted (audit trail).
type Period struct {
	Index      id.PeriodIndex        `json:"index"`
	StartedAt  time.Time             `json:"started_at"`
	Pool       int64                 `json:"pool"`
	Payments   []Payment             `json:"payments"`
	Claims     []Claim               `json:"claims"`
	Defections map[id.SubgroupID]int `json:"defections"`
	Remitted   bool                  `json:"remitted"`
}

func NewPeriod(index id.PeriodIndex, startedAt time.Time) *Period {
	return &Period{
		Index:      index,
		StartedAt:  startedAt,
		Defections: make(map[id.SubgroupID]int),
	}
}

// SubperiodAt derives the subperiod purely from elapsed time.
func (p *Period) SubperiodAt(now time.Time) Subperiod {
	if p.Remitted {
		return SubperiodEnded
	}
	elapsed := now.Sub(p.StartedAt)
	switch {
	case elapsed < PremiumWindow:
		return SubperiodPre
	case elapsed < ClaimWindow:
		return SubperiodActive
	default:
		return SubperiodPost
	}
}

// RemittableAt reports whether the period may be closed.
func (p *Period) RemittableAt(now time.Time) bool {
	return !p.Remitted && now.Sub(p.StartedAt) >= PeriodLength
}

// ParticipantIndex returns the dense one-based index of an active (not
// defected) participant. The explicit ok return avoids overloading index
// zero as "absent".
func (p *Period) ParticipantIndex(account id.AccountID) (int, bool) {
	for i, payment := range p.Payments {
		if payment.Account == account && !payment.Defected {
			return i + 1, true
		}
	}
	return 0, false
}

// PaymentOf returns the payment record for an account, defected or not.
func (p *Period) PaymentOf(account id.AccountID) (*Payment, bool) {
	for i := range p.Payments {
		if p.Payments[i].Account == account {
			return &p.Payments[i], true
		}
	}
	return nil, false
}

// ParticipantCount counts payers whose index is still valid.
func (p *Period) ParticipantCount() int {
	n := 0
	for _, payment := range p.Payments {
		if !payment.Defected {
			n++
		}
	}
	return n
}

// ClaimIndex returns the dense one-based index of a live claim.
func (p *Period) ClaimIndex(claimant id.AccountID) (int, bool) {
	for i, claim := range p.Claims {
		if claim.Claimant == claimant && !claim.Withdrawn {
			return i + 1, true
		}
	}
	return 0, false
}

// ClaimOf returns the claim record for a claimant, withdrawn or not.
func (p *Period) ClaimOf(claimant id.AccountID) (*Claim, bool) {
	for i := range p.Claims {
		if p.Claims[i].Claimant == claimant {
			return &p.Claims[i], true
		}
	}
	return nil, false
}

// ClaimCount counts claims that have not been withdrawn by defection.
func (p *Period) ClaimCount() int {
	n := 0
	for _, claim := range p.Claims {
		if !claim.Withdrawn {
			n++
		}
	}
	return n
}

// DefectionCount reports this period's defections for a subgroup.
func (p *Period) DefectionCount(subgroup id.SubgroupID) int {
	return p.Defections[subgroup]
}

// IsToxic reports whether a subgroup's claims are disqualified this period.
func (p *Period) IsToxic(subgroup id.SubgroupID) bool {
	return p.Defections[subgroup] > MaxSubgroupDefections
}

// LoanState is the group's credit facility position.
// Invariant: Debt and MonthsRemaining are both zero exactly when !Loaned.
type LoanState struct {
	Loaned          bool  `json:"loaned"`
	Debt            int64 `json:"debt"`
	MonthsRemaining int   `json:"months_remaining"`
	// Installment is Debt/Months fixed at issuance so the schedule stays
	// consistent as the debt amortizes.
	Installment int64 `json:"installment"`
}

// Check validates the loan state invariant.
func (l LoanState) Check() error {
	zero := l.Debt == 0 && l.MonthsRemaining == 0 && l.Installment == 0
	if l.Loaned == zero {
		return dErrors.New(dErrors.CodeInvariantViolation, "loan state flags disagree with balances")
	}
	return nil
}

// LiquidityGate guards escrow withdrawals. An external deposit arms it; a
// withdrawal clears it. Remittance is blocked while the gate is armed.
type LiquidityGate struct {
	Liquid bool `json:"liquid"`
}

// Group is the aggregate root for one tanda. All mutation goes through the
// group service, which serializes operations per group.
type Group struct {
	ID            id.GroupID                   `json:"id"`
	Controller    Controller                   `json:"controller"`
	ClaimVolume   int                          `json:"claim_volume"`
	PayoutAmount  int64                        `json:"payout_amount"`
	Active        bool                         `json:"active"`
	CurrentPeriod id.PeriodIndex               `json:"current_period"`
	Members       map[id.AccountID]id.SubgroupID `json:"members"`
	SubgroupSizes map[id.SubgroupID]int        `json:"subgroup_sizes"`
	Periods       map[id.PeriodIndex]*Period   `json:"periods"`
	Loan          LoanState                    `json:"loan"`
	Escrow        LiquidityGate                `json:"escrow"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

// NewGroup constructs a group with domain invariant validation.
func NewGroup(secretary id.AccountID, claimVolume int, payoutAmount int64, now time.Time) (*Group, error) {
	if secretary.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "secretary account is required")
	}
	if claimVolume < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "claim volume must be at least one")
	}
	if payoutAmount < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payout amount must be at least one")
	}
	return &Group{
		ID:            id.NewGroupID(),
		Controller:    SecretaryController(secretary),
		ClaimVolume:   claimVolume,
		PayoutAmount:  payoutAmount,
		Active:        true,
		Members:       make(map[id.AccountID]id.SubgroupID),
		SubgroupSizes: make(map[id.SubgroupID]int),
		Periods:       make(map[id.PeriodIndex]*Period),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// PoolAccount is the ledger account holding this group's period pools.
func (g *Group) PoolAccount() id.AccountID {
	return id.AccountID("group:" + g.ID.String() + ":pool")
}

// EscrowAccount is the ledger account behind the liquidity gate.
func (g *Group) EscrowAccount() id.AccountID {
	return id.AccountID("group:" + g.ID.String() + ":escrow")
}

// MemberCount is the current total membership.
func (g *Group) MemberCount() int {
	return len(g.Members)
}

// SubgroupOf looks up a member's subgroup.
func (g *Group) SubgroupOf(account id.AccountID) (id.SubgroupID, bool) {
	sub, ok := g.Members[account]
	return sub, ok
}

// Current returns the group's current period record, if any.
func (g *Group) Current() (*Period, bool) {
	if g.CurrentPeriod.IsZero() {
		return nil, false
	}
	p, ok := g.Periods[g.CurrentPeriod]
	return p, ok
}

// SubperiodAt derives the group's subperiod: LOBBY before the first period,
// ENDED when the latest period closed and no new one opened (inactive
// group), otherwise the current period's time-derived phase.
func (g *Group) SubperiodAt(now time.Time) Subperiod {
	p, ok := g.Current()
	if !ok {
		return SubperiodLobby
	}
	return p.SubperiodAt(now)
}

// InLobby reports whether membership edits are currently admitted.
func (g *Group) InLobby(now time.Time) bool {
	return g.SubperiodAt(now) == SubperiodLobby
}

// AddMember assigns account to subgroup, keeping cardinalities consistent.
func (g *Group) AddMember(account id.AccountID, subgroup id.SubgroupID) error {
	if !subgroup.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "subgroup zero is reserved for non-members")
	}
	if _, exists := g.Members[account]; exists {
		return dErrors.New(dErrors.CodeStateViolation, "account is already a policyholder")
	}
	g.Members[account] = subgroup
	g.SubgroupSizes[subgroup]++
	return nil
}

// RemoveMember drops a policyholder and decrements its subgroup count.
func (g *Group) RemoveMember(account id.AccountID) error {
	subgroup, exists := g.Members[account]
	if !exists {
		return dErrors.New(dErrors.CodeNotFound, "account is not a policyholder")
	}
	delete(g.Members, account)
	g.SubgroupSizes[subgroup]--
	if g.SubgroupSizes[subgroup] <= 0 {
		delete(g.SubgroupSizes, subgroup)
	}
	return nil
}

// ChangeSubgroup reassigns a policyholder, keeping counts consistent. A
// policyholder belongs to exactly one subgroup at a time.
func (g *Group) ChangeSubgroup(account id.AccountID, subgroup id.SubgroupID) error {
	if !subgroup.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "subgroup zero is reserved for non-members")
	}
	current, exists := g.Members[account]
	if !exists {
		return dErrors.New(dErrors.CodeNotFound, "account is not a policyholder")
	}
	if current == subgroup {
		return nil
	}
	g.SubgroupSizes[current]--
	if g.SubgroupSizes[current] <= 0 {
		delete(g.SubgroupSizes, current)
	}
	g.Members[account] = subgroup
	g.SubgroupSizes[subgroup]++
	return nil
}

// Premium is the base contribution: the pool must cover ClaimVolume awards
// of PayoutAmount spread over current membership, rounded up so repeated
// computation in the same period always agrees.
func (g *Group) Premium() int64 {
	members := int64(g.MemberCount())
	if members == 0 {
		return 0
	}
	target := int64(g.ClaimVolume) * g.PayoutAmount
	return (target + members - 1) / members
}

// Overpayment is the subgroup-local surcharge for a subgroup of the given
// live size: the remaining members absorb the missing member's share so the
// subgroup's aggregate contribution holds. A degenerate subgroup of one
// owes a full extra premium.
func (g *Group) Overpayment(liveSize int) int64 {
	premium := g.Premium()
	if liveSize <= 1 {
		return premium
	}
	return premium / int64(liveSize-1)
}

// LiveSubgroupSize is the subgroup's membership minus this period's
// defections, the occupancy the overpayment is priced against.
func (g *Group) LiveSubgroupSize(p *Period, subgroup id.SubgroupID) int {
	size := g.SubgroupSizes[subgroup]
	if p != nil {
		size -= p.DefectionCount(subgroup)
	}
	if size < 0 {
		return 0
	}
	return size
}
