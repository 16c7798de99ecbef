package credit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"tandapool/internal/asset"
	"tandapool/internal/credit"
	groupservice "tandapool/internal/group/service"
	"tandapool/internal/group/store/memory"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/requestcontext"
)

const (
	adminAccount     = id.AccountID("registry-admin")
	registryAccount  = id.AccountID("registry")
	secretaryAccount = id.AccountID("secretary")
	fundAccount      = id.AccountID("credit-fund")
	sponsorAccount   = id.AccountID("sponsor")
)

type staticAuthorizer struct{}

func (staticAuthorizer) IsAdministrator(_ context.Context, account id.AccountID) (bool, error) {
	return account == adminAccount, nil
}

type CreditSuite struct {
	suite.Suite
	ledger  *asset.InMemoryLedger
	groups  *groupservice.Service
	credit  *credit.Service
	groupID id.GroupID
}

func TestCreditSuite(t *testing.T) {
	suite.Run(t, new(CreditSuite))
}

func (s *CreditSuite) SetupTest() {
	s.ledger = asset.NewInMemoryLedger()
	store := memory.New()

	groups, err := groupservice.New(store, s.ledger,
		groupservice.WithAuthorizer(staticAuthorizer{}),
		groupservice.WithRegistryAccount(registryAccount),
	)
	s.Require().NoError(err)
	s.groups = groups

	svc, err := credit.New(groups, s.ledger, fundAccount,
		credit.WithAuthorizer(staticAuthorizer{}),
		credit.WithRegistryAccount(registryAccount),
	)
	s.Require().NoError(err)
	s.credit = svc

	ctx := requestcontext.WithActor(context.Background(), adminAccount)
	group, err := groups.Create(ctx, secretaryAccount, 3, 500)
	s.Require().NoError(err)
	s.groupID = group.ID

	s.Require().NoError(s.ledger.Mint(context.Background(), fundAccount, 10_000))
	s.Require().NoError(s.ledger.Mint(context.Background(), sponsorAccount, 10_000))
}

func (s *CreditSuite) asActor(account id.AccountID) context.Context {
	return requestcontext.WithActor(context.Background(), account)
}

func (s *CreditSuite) TestEndowmentSizing() {
	group, err := s.groups.Get(context.Background(), s.groupID)
	s.Require().NoError(err)

	// Reference premium 30, reference overpayment 7: six months at one
	// fifth of the reference intake.
	s.Equal(int64(2220), credit.Endowment(group, 6))
	s.Equal(int64(370), credit.Endowment(group, 1))
}

func (s *CreditSuite) TestLoanEndowsSecretary() {
	s.Require().NoError(s.credit.Loan(s.asActor(adminAccount), s.groupID, 6))

	balance, err := s.ledger.BalanceOf(context.Background(), secretaryAccount)
	s.Require().NoError(err)
	s.Equal(int64(2220), balance)

	group, err := s.groups.Get(context.Background(), s.groupID)
	s.Require().NoError(err)
	s.True(group.Loan.Loaned)
	s.Equal(int64(2220), group.Loan.Debt)
	s.Equal(6, group.Loan.MonthsRemaining)
	s.Equal(int64(370), group.Loan.Installment)
	s.NoError(group.Loan.Check())
}

func (s *CreditSuite) TestLoanRequiresAdministrator() {
	err := s.credit.Loan(s.asActor(secretaryAccount), s.groupID, 6)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *CreditSuite) TestLoanRejectsSecondLoan() {
	s.Require().NoError(s.credit.Loan(s.asActor(adminAccount), s.groupID, 6))
	err := s.credit.Loan(s.asActor(adminAccount), s.groupID, 3)
	s.Equal(dErrors.CodeStateViolation, dErrors.CodeOf(err))
}

func (s *CreditSuite) TestLoanRejectsZeroTerm() {
	err := s.credit.Loan(s.asActor(adminAccount), s.groupID, 0)
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}

func (s *CreditSuite) TestDepositArmsGate() {
	s.Require().NoError(s.credit.Deposit(s.asActor(sponsorAccount), s.groupID, 750))

	group, err := s.groups.Get(context.Background(), s.groupID)
	s.Require().NoError(err)
	s.True(group.Escrow.Liquid)

	escrow, err := s.ledger.BalanceOf(context.Background(), group.EscrowAccount())
	s.Require().NoError(err)
	s.Equal(int64(750), escrow)
}

func (s *CreditSuite) TestDepositRequiresFunds() {
	err := s.credit.Deposit(s.asActor(id.AccountID("pauper")), s.groupID, 100)
	s.Equal(dErrors.CodeInsufficientFunds, dErrors.CodeOf(err))

	group, err := s.groups.Get(context.Background(), s.groupID)
	s.Require().NoError(err)
	s.False(group.Escrow.Liquid, "a failed deposit must not arm the gate")
}

func (s *CreditSuite) TestWithdrawReleasesGate() {
	s.Require().NoError(s.credit.Deposit(s.asActor(sponsorAccount), s.groupID, 750))
	s.Require().NoError(s.credit.Withdraw(s.asActor(secretaryAccount), s.groupID))

	group, err := s.groups.Get(context.Background(), s.groupID)
	s.Require().NoError(err)
	s.False(group.Escrow.Liquid)

	balance, err := s.ledger.BalanceOf(context.Background(), secretaryAccount)
	s.Require().NoError(err)
	s.Equal(int64(750), balance)

	escrow, err := s.ledger.BalanceOf(context.Background(), group.EscrowAccount())
	s.Require().NoError(err)
	s.Zero(escrow)
}

func (s *CreditSuite) TestWithdrawRequiresSecretary() {
	s.Require().NoError(s.credit.Deposit(s.asActor(sponsorAccount), s.groupID, 750))
	err := s.credit.Withdraw(s.asActor(sponsorAccount), s.groupID)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *CreditSuite) TestWithdrawRequiresLiquidity() {
	err := s.credit.Withdraw(s.asActor(secretaryAccount), s.groupID)
	s.Equal(dErrors.CodeStateViolation, dErrors.CodeOf(err))
}
