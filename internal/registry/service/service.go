// Package service implements the registry: the operator layer that owns
// administrator credentials, gates group creation, and serializes
// remittance behind a distributed lock.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tandapool/internal/audit"
	groupmodels "tandapool/internal/group/models"
	groupports "tandapool/internal/group/ports"
	jwttoken "tandapool/internal/jwt_token"
	"tandapool/internal/registry/models"
	"tandapool/internal/registry/ports"
	"tandapool/internal/registry/secrets"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/requestcontext"
)

// tokenTTL is the lifetime of issued access tokens.
const tokenTTL = time.Hour

// Groups is the slice of the group core the registry drives.
type Groups interface {
	Create(ctx context.Context, secretary id.AccountID, claimVolume int, payoutAmount int64) (*groupmodels.Group, error)
	Remit(ctx context.Context, groupID id.GroupID) error
}

// Loans is the slice of the credit facility the registry fronts.
type Loans interface {
	Loan(ctx context.Context, groupID id.GroupID, months int) error
}

type Service struct {
	store  ports.Store
	groups Groups
	loans  Loans
	lock   ports.RemitLock
	jwt    *jwttoken.JWTService
	audit  groupports.AuditPublisher
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher groupports.AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithLoans(loans Loans) Option {
	return func(s *Service) { s.loans = loans }
}

func WithTokenService(jwt *jwttoken.JWTService) Option {
	return func(s *Service) { s.jwt = jwt }
}

func New(store ports.Store, groups Groups, lock ports.RemitLock, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("registry store is required")
	}
	if groups == nil {
		return nil, fmt.Errorf("group access is required")
	}
	if lock == nil {
		return nil, fmt.Errorf("remit lock is required")
	}
	svc := &Service{
		store:  store,
		groups: groups,
		lock:   lock,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Authorizer adapts the administrator store to the authorization port the
// group and credit services check against. A standalone type so those
// services can be constructed before the registry service itself.
type Authorizer struct {
	store ports.Store
}

func NewAuthorizer(store ports.Store) *Authorizer {
	return &Authorizer{store: store}
}

func (a *Authorizer) IsAdministrator(ctx context.Context, account id.AccountID) (bool, error) {
	if account.IsNil() {
		return false, nil
	}
	_, err := a.store.GetAdmin(ctx, account)
	if dErrors.CodeOf(err) == dErrors.CodeNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsAdministrator implements the authorization port directly as well.
func (s *Service) IsAdministrator(ctx context.Context, account id.AccountID) (bool, error) {
	return NewAuthorizer(s.store).IsAdministrator(ctx, account)
}

func (s *Service) requireAdministrator(ctx context.Context) (id.AccountID, error) {
	actor := requestcontext.Actor(ctx)
	ok, err := s.IsAdministrator(ctx, actor)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "authorization check failed")
	}
	if !ok {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller is not a registry administrator")
	}
	return actor, nil
}

// Bootstrap provisions the first administrator. It is only admitted while
// the registry has no administrators at all.
func (s *Service) Bootstrap(ctx context.Context, account id.AccountID, secret string) error {
	if account.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "administrator account is required")
	}
	count, err := s.store.CountAdmins(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "count administrators")
	}
	if count > 0 {
		return dErrors.New(dErrors.CodeStateViolation, "registry is already bootstrapped")
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return err
	}
	return s.store.SaveAdmin(ctx, models.Administrator{
		Account:    account,
		SecretHash: hash,
		AddedBy:    account,
		CreatedAt:  requestcontext.Now(ctx),
	})
}

// AddAdmin provisions a new administrator. Administrators only.
func (s *Service) AddAdmin(ctx context.Context, account id.AccountID, secret string) error {
	actor, err := s.requireAdministrator(ctx)
	if err != nil {
		return err
	}
	if account.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "administrator account is required")
	}
	if ok, err := s.IsAdministrator(ctx, account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "authorization check failed")
	} else if ok {
		return dErrors.New(dErrors.CodeStateViolation, "account is already an administrator")
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return err
	}
	err = s.store.SaveAdmin(ctx, models.Administrator{
		Account:    account,
		SecretHash: hash,
		AddedBy:    actor,
		CreatedAt:  requestcontext.Now(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save administrator")
	}
	groupports.LogAudit(ctx, s.logger, s.audit, audit.Event{
		Actor:   actor,
		Subject: account,
		Action:  audit.ActionAdminAdded,
	})
	return nil
}

// RemoveAdmin revokes an administrator. Administrators cannot remove
// themselves, and the last administrator cannot be removed.
func (s *Service) RemoveAdmin(ctx context.Context, account id.AccountID) error {
	actor, err := s.requireAdministrator(ctx)
	if err != nil {
		return err
	}
	if account == actor {
		return dErrors.New(dErrors.CodeStateViolation, "administrators cannot remove themselves")
	}
	count, err := s.store.CountAdmins(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "count administrators")
	}
	if count <= 1 {
		return dErrors.New(dErrors.CodeStateViolation, "the last administrator cannot be removed")
	}
	if err := s.store.DeleteAdmin(ctx, account); err != nil {
		return err
	}
	groupports.LogAudit(ctx, s.logger, s.audit, audit.Event{
		Actor:   actor,
		Subject: account,
		Action:  audit.ActionAdminRemoved,
	})
	return nil
}

// IssueToken exchanges administrator credentials for an access token.
func (s *Service) IssueToken(ctx context.Context, account id.AccountID, secret string) (string, error) {
	if s.jwt == nil {
		return "", dErrors.New(dErrors.CodeInternal, "token service is not configured")
	}
	admin, err := s.store.GetAdmin(ctx, account)
	if dErrors.CodeOf(err) == dErrors.CodeNotFound {
		// Same failure as a bad secret so probes cannot enumerate admins.
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid secret")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "load administrator")
	}
	if err := secrets.Verify(secret, admin.SecretHash); err != nil {
		return "", err
	}
	return s.jwt.GenerateAccessToken(account, true, tokenTTL)
}

// MintToken issues an access token for any account. Administrators use it
// to provision secretaries and policyholders.
func (s *Service) MintToken(ctx context.Context, account id.AccountID) (string, error) {
	if _, err := s.requireAdministrator(ctx); err != nil {
		return "", err
	}
	if s.jwt == nil {
		return "", dErrors.New(dErrors.CodeInternal, "token service is not configured")
	}
	if account.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	return s.jwt.GenerateAccessToken(account, false, tokenTTL)
}

// CreateGroup instantiates a group for a founding secretary. Administrators
// only; each secretary runs at most one group.
func (s *Service) CreateGroup(ctx context.Context, secretary id.AccountID, claimVolume int, payoutAmount int64) (*groupmodels.Group, error) {
	actor, err := s.requireAdministrator(ctx)
	if err != nil {
		return nil, err
	}
	if secretary.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "secretary account is required")
	}

	// Reserve the secretary before creating so two concurrent creates for
	// the same secretary cannot both succeed.
	now := requestcontext.Now(ctx)
	placeholder := models.SecretaryAssignment{Secretary: secretary, CreatedAt: now}
	if err := s.store.AssignSecretary(ctx, placeholder); err != nil {
		return nil, err
	}

	group, err := s.groups.Create(ctx, secretary, claimVolume, payoutAmount)
	if err != nil {
		if uerr := s.store.UnassignSecretary(ctx, secretary); uerr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to release secretary reservation",
				slog.String("secretary", secretary.String()), slog.Any("error", uerr))
		}
		return nil, err
	}

	// Record the group id over the reservation. We still hold it, so the
	// replace cannot lose a race.
	placeholder.GroupID = group.ID
	if err := s.store.UnassignSecretary(ctx, secretary); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record secretary assignment")
	}
	if err := s.store.AssignSecretary(ctx, placeholder); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record secretary assignment")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "group created",
			slog.String("group_id", group.ID.String()),
			slog.String("secretary", secretary.String()),
			slog.String("actor", actor.String()))
	}
	return group, nil
}

// SecretaryGroup looks up the group a secretary founded.
func (s *Service) SecretaryGroup(ctx context.Context, secretary id.AccountID) (id.GroupID, error) {
	assignment, err := s.store.SecretaryGroup(ctx, secretary)
	if err != nil {
		return id.GroupID{}, err
	}
	return assignment.GroupID, nil
}

// RemitGroup settles a group's period under the per-group remit lock, so
// concurrent remitters on different replicas cannot double-pay.
func (s *Service) RemitGroup(ctx context.Context, groupID id.GroupID) error {
	release, err := s.lock.Acquire(ctx, groupID)
	if err != nil {
		return err
	}
	defer release()
	return s.groups.Remit(ctx, groupID)
}

// Loan fronts the credit facility.
func (s *Service) Loan(ctx context.Context, groupID id.GroupID, months int) error {
	if s.loans == nil {
		return dErrors.New(dErrors.CodeInternal, "credit facility is not configured")
	}
	return s.loans.Loan(ctx, groupID, months)
}
