// Package credit manages a group's credit facility: loan endowments paid to
// the controller, and the escrow liquidity gate that external deposits arm
// and secretary withdrawals release. Amortization happens at remittance in
// the group core; this package only issues and funds.
package credit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tandapool/internal/asset"
	"tandapool/internal/audit"
	"tandapool/internal/credit/metrics"
	"tandapool/internal/group/models"
	"tandapool/internal/group/ports"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/requestcontext"
)

// referenceMemberCount anchors loan sizing to the fully subscribed group
// the product was designed around, so the endowment does not shrink while
// the roster is still filling.
const referenceMemberCount = 50

// Groups is the slice of the group service the credit facility needs.
type Groups interface {
	Mutate(ctx context.Context, groupID id.GroupID, fn func(g *models.Group, now time.Time) error) error
}

type Service struct {
	groups   Groups
	ledger   ports.Ledger
	auth     ports.Authorizer
	audit    ports.AuditPublisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	registry id.AccountID
	fund     id.AccountID // source of loan endowments
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuthorizer(auth ports.Authorizer) Option {
	return func(s *Service) { s.auth = auth }
}

// WithRegistryAccount sets the ledger account the registry acts through.
func WithRegistryAccount(account id.AccountID) Option {
	return func(s *Service) { s.registry = account }
}

func New(groups Groups, ledger ports.Ledger, fund id.AccountID, opts ...Option) (*Service, error) {
	if groups == nil {
		return nil, fmt.Errorf("group access is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("asset ledger is required")
	}
	if fund.IsNil() {
		return nil, fmt.Errorf("credit fund account is required")
	}
	svc := &Service{
		groups: groups,
		ledger: ledger,
		fund:   fund,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Endowment sizes a loan for a group: the group pays it back at one fifth
// of the reference group's monthly intake, so principal is months times ten
// times the reference premium plus overpayment.
func Endowment(g *models.Group, months int) int64 {
	refPremium := (int64(g.ClaimVolume)*g.PayoutAmount + referenceMemberCount - 1) / referenceMemberCount
	refOverpayment := refPremium / 4
	return int64(months) * 10 * (refPremium + refOverpayment)
}

// Loan endows the group and opens its amortization schedule. Registry
// administrators only; a group carries at most one loan at a time.
func (s *Service) Loan(ctx context.Context, groupID id.GroupID, months int) error {
	actor, err := s.requireAdministrator(ctx)
	if err != nil {
		return err
	}
	if months < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "loan term must be at least one month")
	}
	return s.groups.Mutate(ctx, groupID, func(g *models.Group, _ time.Time) error {
		if g.Loan.Loaned {
			return dErrors.New(dErrors.CodeStateViolation, "group already carries a loan")
		}
		endowment := Endowment(g, months)
		payee := g.Controller.Payee(s.registry)
		if err := s.ledger.Transfer(ctx, s.fund, payee, endowment); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "endow loan")
		}
		g.Loan = models.LoanState{
			Loaned:          true,
			Debt:            endowment,
			MonthsRemaining: months,
			Installment:     endowment / int64(months),
		}
		if s.metrics != nil {
			s.metrics.LoansIssued.Inc()
			s.metrics.LoanVolume.Add(float64(endowment))
		}
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Period:  g.CurrentPeriod,
			Actor:   actor,
			Subject: payee,
			Action:  audit.ActionLoanIssued,
			Amount:  endowment,
		})
		return nil
	})
}

// Deposit moves funds from the caller into the group's escrow account and
// arms the liquidity gate. Any account may deposit.
func (s *Service) Deposit(ctx context.Context, groupID id.GroupID, amount int64) error {
	actor := requestcontext.Actor(ctx)
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller account is required")
	}
	if amount < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "deposit amount must be positive")
	}
	return s.groups.Mutate(ctx, groupID, func(g *models.Group, _ time.Time) error {
		if err := s.ledger.TransferFrom(ctx, actor, g.EscrowAccount(), amount); err != nil {
			if errors.Is(err, asset.ErrInsufficientFunds) {
				return dErrors.Wrap(err, dErrors.CodeInsufficientFunds, "caller cannot cover the deposit")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "escrow transfer failed")
		}
		g.Escrow.Liquid = true
		if s.metrics != nil {
			s.metrics.EscrowDeposits.Inc()
		}
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Period:  g.CurrentPeriod,
			Actor:   actor,
			Action:  audit.ActionEscrowDeposited,
			Amount:  amount,
		})
		return nil
	})
}

// Withdraw pays the escrow balance out to the group controller and releases
// the liquidity gate, unblocking remittance. Secretary rights required.
func (s *Service) Withdraw(ctx context.Context, groupID id.GroupID) error {
	return s.groups.Mutate(ctx, groupID, func(g *models.Group, _ time.Time) error {
		actor := requestcontext.Actor(ctx)
		if !g.Controller.Holds(actor, s.registry) {
			return dErrors.New(dErrors.CodeUnauthorized, "caller does not hold secretary rights for this group")
		}
		if !g.Escrow.Liquid {
			return dErrors.New(dErrors.CodeStateViolation, "escrow is not liquid")
		}
		balance, err := s.ledger.BalanceOf(ctx, g.EscrowAccount())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "read escrow balance")
		}
		payee := g.Controller.Payee(s.registry)
		if balance > 0 {
			if err := s.ledger.Transfer(ctx, g.EscrowAccount(), payee, balance); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "release escrow")
			}
		}
		g.Escrow.Liquid = false
		if s.metrics != nil {
			s.metrics.EscrowWithdrawals.Inc()
		}
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Period:  g.CurrentPeriod,
			Actor:   actor,
			Subject: payee,
			Action:  audit.ActionEscrowWithdrawn,
			Amount:  balance,
		})
		return nil
	})
}

func (s *Service) requireAdministrator(ctx context.Context) (id.AccountID, error) {
	actor := requestcontext.Actor(ctx)
	if s.auth == nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "no authorizer configured")
	}
	ok, err := s.auth.IsAdministrator(ctx, actor)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "authorization check failed")
	}
	if !ok {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller is not a registry administrator")
	}
	return actor, nil
}
