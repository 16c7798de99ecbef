package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"tandapool/internal/asset"
	groupservice "tandapool/internal/group/service"
	groupmemory "tandapool/internal/group/store/memory"
	jwttoken "tandapool/internal/jwt_token"
	"tandapool/internal/registry/locks"
	"tandapool/internal/registry/service"
	"tandapool/internal/registry/store/memory"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/requestcontext"
)

const (
	rootAdmin  = id.AccountID("root-admin")
	rootSecret = "root-secret"
)

type RegistrySuite struct {
	suite.Suite
	registry *service.Service
	groups   *groupservice.Service
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	store := memory.New()
	ledger := asset.NewInMemoryLedger()

	groups, err := groupservice.New(groupmemory.New(), ledger,
		groupservice.WithAuthorizer(service.NewAuthorizer(store)),
	)
	s.Require().NoError(err)
	s.groups = groups

	registry, err := service.New(store, groups, locks.NewMemory(),
		service.WithTokenService(jwttoken.NewJWTService("test-signing-key", "tandapool", "tandapool")),
	)
	s.Require().NoError(err)
	s.registry = registry

	s.Require().NoError(registry.Bootstrap(context.Background(), rootAdmin, rootSecret))
}

func (s *RegistrySuite) asActor(account id.AccountID) context.Context {
	return requestcontext.WithActor(context.Background(), account)
}

func (s *RegistrySuite) TestBootstrapOnlyOnce() {
	err := s.registry.Bootstrap(context.Background(), id.AccountID("intruder"), "x")
	s.Equal(dErrors.CodeStateViolation, dErrors.CodeOf(err))
}

func (s *RegistrySuite) TestAddAndRemoveAdmin() {
	ctx := s.asActor(rootAdmin)
	second := id.AccountID("second-admin")

	s.Require().NoError(s.registry.AddAdmin(ctx, second, "second-secret"))

	ok, err := s.registry.IsAdministrator(context.Background(), second)
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(s.registry.RemoveAdmin(ctx, second))

	ok, err = s.registry.IsAdministrator(context.Background(), second)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RegistrySuite) TestAddAdminRequiresAdministrator() {
	err := s.registry.AddAdmin(s.asActor(id.AccountID("nobody")), id.AccountID("x"), "secret")
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *RegistrySuite) TestAdminsCannotRemoveThemselves() {
	ctx := s.asActor(rootAdmin)
	s.Require().NoError(s.registry.AddAdmin(ctx, id.AccountID("second-admin"), "x"))

	err := s.registry.RemoveAdmin(ctx, rootAdmin)
	s.Equal(dErrors.CodeStateViolation, dErrors.CodeOf(err))
}

func (s *RegistrySuite) TestLastAdminCannotBeRemoved() {
	ctx := s.asActor(rootAdmin)
	s.Require().NoError(s.registry.AddAdmin(ctx, id.AccountID("second-admin"), "x"))

	err := s.registry.RemoveAdmin(s.asActor(id.AccountID("second-admin")), rootAdmin)
	s.Require().NoError(err)

	err = s.registry.RemoveAdmin(s.asActor(id.AccountID("second-admin")), id.AccountID("second-admin"))
	s.Equal(dErrors.CodeStateViolation, dErrors.CodeOf(err))
}

func (s *RegistrySuite) TestIssueToken() {
	token, err := s.registry.IssueToken(context.Background(), rootAdmin, rootSecret)
	s.Require().NoError(err)
	s.NotEmpty(token)

	jwt := jwttoken.NewJWTService("test-signing-key", "tandapool", "tandapool")
	claims, err := jwt.ValidateToken(token)
	s.Require().NoError(err)
	s.Equal(rootAdmin.String(), claims.Account)
	s.True(claims.Admin)
}

func (s *RegistrySuite) TestIssueTokenRejectsBadSecret() {
	_, err := s.registry.IssueToken(context.Background(), rootAdmin, "wrong")
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *RegistrySuite) TestIssueTokenHidesUnknownAccounts() {
	_, err := s.registry.IssueToken(context.Background(), id.AccountID("ghost"), "x")
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *RegistrySuite) TestMintTokenForMember() {
	token, err := s.registry.MintToken(s.asActor(rootAdmin), id.AccountID("member-1"))
	s.Require().NoError(err)

	jwt := jwttoken.NewJWTService("test-signing-key", "tandapool", "tandapool")
	claims, err := jwt.ValidateToken(token)
	s.Require().NoError(err)
	s.Equal("member-1", claims.Account)
	s.False(claims.Admin)
}

func (s *RegistrySuite) TestCreateGroup() {
	secretary := id.AccountID("secretary-1")
	group, err := s.registry.CreateGroup(s.asActor(rootAdmin), secretary, 3, 500)
	s.Require().NoError(err)
	s.Equal(3, group.ClaimVolume)

	groupID, err := s.registry.SecretaryGroup(context.Background(), secretary)
	s.Require().NoError(err)
	s.Equal(group.ID, groupID)
}

func (s *RegistrySuite) TestCreateGroupOnePerSecretary() {
	secretary := id.AccountID("secretary-1")
	_, err := s.registry.CreateGroup(s.asActor(rootAdmin), secretary, 3, 500)
	s.Require().NoError(err)

	_, err = s.registry.CreateGroup(s.asActor(rootAdmin), secretary, 2, 300)
	s.Equal(dErrors.CodeStateViolation, dErrors.CodeOf(err))
}

func (s *RegistrySuite) TestCreateGroupRequiresAdministrator() {
	_, err := s.registry.CreateGroup(s.asActor(id.AccountID("nobody")), id.AccountID("sec"), 3, 500)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *RegistrySuite) TestRemitGroupHoldsLock() {
	// A remit on a group with no remittable period fails in the core, but
	// the lock must be released either way so a retry is not jammed.
	secretary := id.AccountID("secretary-1")
	group, err := s.registry.CreateGroup(s.asActor(rootAdmin), secretary, 3, 500)
	s.Require().NoError(err)

	err = s.registry.RemitGroup(s.asActor(rootAdmin), group.ID)
	s.Error(err)

	err = s.registry.RemitGroup(s.asActor(rootAdmin), group.ID)
	s.Error(err)
	s.NotEqual(dErrors.CodeInternal, dErrors.CodeOf(err))
}
