// Package service implements the pool core: membership, the period state
// machine, premium and overpayment accounting, claims, defections, and
// remittance. Every mutating operation validates all of its guards before
// touching state and applies against a private copy of the aggregate, so a
// rejected call leaves nothing behind.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"tandapool/internal/audit"
	"tandapool/internal/group/metrics"
	"tandapool/internal/group/models"
	"tandapool/internal/group/ports"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/requestcontext"
)

// Service is the single writer for group aggregates. Operations on one
// group are strictly serialized behind a per-group mutex: each call runs to
// completion or fails entirely before the next is observed.
type Service struct {
	store    ports.GroupStore
	ledger   ports.Ledger
	auth     ports.Authorizer
	audit    ports.AuditPublisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	registry id.AccountID // account the registry acts through
	credit   id.AccountID // recipient of loan installments

	mu    sync.Mutex
	locks map[id.GroupID]*sync.Mutex
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
// Registry-controlled groups pay endowments and withdrawals to it.
func WithRegistryAccount(account id.AccountID) Option {
	return func(s *Service) { s.registry = account }
}

// WithCreditRecipient sets where loan installment shares are forwarded.
func WithCreditRecipient(account id.AccountID) Option {
	return func(s *Service) { s.credit = account }
}

func New(store ports.GroupStore, ledger ports.Ledger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("group store is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("asset ledger is required")
	}

	svc := &Service{
		store:  store,
		ledger: ledger,
		tracer: otel.Tracer("tandapool/group"),
		locks:  make(map[id.GroupID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *Service) lockFor(groupID id.GroupID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[groupID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[groupID] = lock
	}
	return lock
}

// update runs fn against a private copy of the aggregate under the group's
// lock and persists the result only when fn succeeds.
func (s *Service) update(ctx context.Context, groupID id.GroupID, fn func(g *models.Group, now time.Time) error) error {
	lock := s.lockFor(groupID)
	lock.Lock()
	defer lock.Unlock()

	g, err := s.store.Get(ctx, groupID)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	if err := fn(g, now); err != nil {
		return err
	}
	g.UpdatedAt = now
	return s.store.Save(ctx, g)
}

// Mutate runs fn against a private copy of the aggregate under the group's
// write lock and persists the result only when fn succeeds. It exists for
// sibling services (credit, registry) that change group state and must
// serialize against the pool operations here.
func (s *Service) Mutate(ctx context.Context, groupID id.GroupID, fn func(g *models.Group, now time.Time) error) error {
	return s.update(ctx, groupID, fn)
}

// read runs fn against a snapshot without taking the group lock; all reads
// are against a consistent copy the store hands out.
func (s *Service) read(ctx context.Context, groupID id.GroupID, fn func(g *models.Group, now time.Time) error) error {
	g, err := s.store.Get(ctx, groupID)
	if err != nil {
		return err
	}
	return fn(g, requestcontext.Now(ctx))
}

// requireSecretary checks that the caller currently holds secretary rights.
func (s *Service) requireSecretary(ctx context.Context, g *models.Group) (id.AccountID, error) {
	actor := requestcontext.Actor(ctx)
	if !g.Controller.Holds(actor, s.registry) {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller does not hold secretary rights for this group")
	}
	return actor, nil
}

// requireAdministrator checks the registry-owned authorization predicate.
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

// Create instantiates a group. Called by the registry factory, which owns
// the decision of who may create groups.
func (s *Service) Create(ctx context.Context, secretary id.AccountID, claimVolume int, payoutAmount int64) (*models.Group, error) {
	now := requestcontext.Now(ctx)
	g, err := models.NewGroup(secretary, claimVolume, payoutAmount, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, g); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist new group")
	}
	ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
		GroupID: g.ID,
		Actor:   requestcontext.Actor(ctx),
		Subject: secretary,
		Action:  audit.ActionGroupCreated,
	})
	return g, nil
}

// Get returns a snapshot of the aggregate.
func (s *Service) Get(ctx context.Context, groupID id.GroupID) (*models.Group, error) {
	return s.store.Get(ctx, groupID)
}

// AddPolicyholder admits a new member into a subgroup. Secretary only,
// LOBBY only.
func (s *Service) AddPolicyholder(ctx context.Context, groupID id.GroupID, account id.AccountID, subgroup id.SubgroupID) error {
	return s.update(ctx, groupID, func(g *models.Group, now time.Time) error {
		actor, err := s.requireSecretary(ctx, g)
		if err != nil {
			return err
		}
		if !g.InLobby(now) {
			return dErrors.New(dErrors.CodeSubperiodViolation, "membership edits are admitted only in LOBBY")
		}
		if err := g.AddMember(account, subgroup); err != nil {
			return err
		}
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID:  g.ID,
			Actor:    actor,
			Subject:  account,
			Subgroup: subgroup,
			Action:   audit.ActionPolicyholderAdded,
		})
		return nil
	})
}

// RemovePolicyholder drops a member. Secretary only, LOBBY only.
func (s *Service) RemovePolicyholder(ctx context.Context, groupID id.GroupID, account id.AccountID) error {
	return s.update(ctx, groupID, func(g *models.Group, now time.Time) error {
		actor, err := s.requireSecretary(ctx, g)
		if err != nil {
			return err
		}
		if !g.InLobby(now) {
			return dErrors.New(dErrors.CodeSubperiodViolation, "membership edits are admitted only in LOBBY")
		}
		if err := g.RemoveMember(account); err != nil {
			return err
		}
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Actor:   actor,
			Subject: account,
			Action:  audit.ActionPolicyholderRemoved,
		})
		return nil
	})
}

// ChangeSubgroup reassigns a member. Secretary only, LOBBY only.
func (s *Service) ChangeSubgroup(ctx context.Context, groupID id.GroupID, account id.AccountID, subgroup id.SubgroupID) error {
	return s.update(ctx, groupID, func(g *models.Group, now time.Time) error {
		actor, err := s.requireSecretary(ctx, g)
		if err != nil {
			return err
		}
		if !g.InLobby(now) {
			return dErrors.New(dErrors.CodeSubperiodViolation, "membership edits are admitted only in LOBBY")
		}
		if err := g.ChangeSubgroup(account, subgroup); err != nil {
			return err
		}
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID:  g.ID,
			Actor:    actor,
			Subject:  account,
			Subgroup: subgroup,
			Action:   audit.ActionSubgroupChanged,
		})
		return nil
	})
}

// StartGroup opens the first (or next, after a parked group is resumed)
// period in PRE. Secretary only; the group must not already be mid-period.
func (s *Service) StartGroup(ctx context.Context, groupID id.GroupID) error {
	return s.update(ctx, groupID, func(g *models.Group, now time.Time) error {
		actor, err := s.requireSecretary(ctx, g)
		if err != nil {
			return err
		}
		if !g.Active {
			return dErrors.New(dErrors.CodeStateViolation, "group is stopped; resume it before starting a period")
		}
		switch g.SubperiodAt(now) {
		case models.SubperiodLobby, models.SubperiodEnded:
			// admitted
		default:
			return dErrors.New(dErrors.CodeSubperiodViolation, "a period is already in progress")
		}
		if g.MemberCount() == 0 {
			return dErrors.New(dErrors.CodeStateViolation, "cannot start a period with no policyholders")
		}
		next := g.CurrentPeriod.Next()
		g.Periods[next] = models.NewPeriod(next, now)
		g.CurrentPeriod = next
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Period:  next,
			Actor:   actor,
			Action:  audit.ActionPeriodStarted,
		})
		return nil
	})
}

// StopGroup flags the group inactive: the current period still runs to
// remittance, but no new period opens afterwards.
func (s *Service) StopGroup(ctx context.Context, groupID id.GroupID) error {
	return s.update(ctx, groupID, func(g *models.Group, _ time.Time) error {
		actor, err := s.requireSecretary(ctx, g)
		if err != nil {
			return err
		}
		if !g.Active {
			return dErrors.New(dErrors.CodeStateViolation, "group is already stopped")
		}
		g.Active = false
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Actor:   actor,
			Action:  audit.ActionGroupStopped,
		})
		return nil
	})
}

// ResumeGroup reactivates a parked group. Registry administrators only;
// the secretary asks the registry, mirroring the reference deployment.
func (s *Service) ResumeGroup(ctx context.Context, groupID id.GroupID) error {
	return s.update(ctx, groupID, func(g *models.Group, _ time.Time) error {
		actor, err := s.requireAdministrator(ctx)
		if err != nil {
			return err
		}
		if g.Active {
			return dErrors.New(dErrors.CodeStateViolation, "group is already active")
		}
		g.Active = true
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Actor:   actor,
			Action:  audit.ActionGroupResumed,
		})
		return nil
	})
}

// RemoveSecretary flips control of the group to the registry.
// Administrators only.
func (s *Service) RemoveSecretary(ctx context.Context, groupID id.GroupID) error {
	return s.update(ctx, groupID, func(g *models.Group, _ time.Time) error {
		actor, err := s.requireAdministrator(ctx)
		if err != nil {
			return err
		}
		if g.Controller.Kind == models.ControllerRegistry {
			return dErrors.New(dErrors.CodeStateViolation, "group is already registry controlled")
		}
		removed := g.Controller.Secretary
		g.Controller = models.RegistryController()
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Actor:   actor,
			Subject: removed,
			Action:  audit.ActionSecretaryRemoved,
		})
		return nil
	})
}

// InstallSecretary hands a registry-controlled group to a new secretary.
// Administrators only.
func (s *Service) InstallSecretary(ctx context.Context, groupID id.GroupID, secretary id.AccountID) error {
	return s.update(ctx, groupID, func(g *models.Group, _ time.Time) error {
		actor, err := s.requireAdministrator(ctx)
		if err != nil {
			return err
		}
		if secretary.IsNil() {
			return dErrors.New(dErrors.CodeInvalidInput, "secretary account is required")
		}
		if g.Controller.Kind != models.ControllerRegistry {
			return dErrors.New(dErrors.CodeStateViolation, "group already has a live secretary")
		}
		g.Controller = models.SecretaryController(secretary)
		ports.LogAudit(ctx, s.logger, s.audit, audit.Event{
			GroupID: g.ID,
			Actor:   actor,
			Subject: secretary,
			Action:  audit.ActionSecretaryInstalled,
		})
		return nil
	})
}
