//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tandapool/internal/group/models"
	"tandapool/internal/group/store/postgres"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	_, err := s.postgres.DB.Exec(postgres.Schema)
	s.Require().NoError(err)
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "groups"))
}

func newTestGroup(s *PostgresStoreSuite) *models.Group {
	group, err := models.NewGroup(id.AccountID("sec-1"), 3, 500, time.Now().UTC())
	s.Require().NoError(err)
	return group
}

func (s *PostgresStoreSuite) TestGetMissingGroup() {
	_, err := s.store.Get(context.Background(), id.NewGroupID())
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *PostgresStoreSuite) TestCreateAndGetRoundTrip() {
	ctx := context.Background()
	group := newTestGroup(s)
	s.Require().NoError(group.AddMember(id.AccountID("m-1"), 1))
	s.Require().NoError(group.AddMember(id.AccountID("m-2"), 1))
	s.Require().NoError(s.store.Create(ctx, group))

	got, err := s.store.Get(ctx, group.ID)
	s.Require().NoError(err)
	s.Equal(group.ID, got.ID)
	s.Equal(group.ClaimVolume, got.ClaimVolume)
	s.Equal(group.PayoutAmount, got.PayoutAmount)
	s.Equal(2, got.MemberCount())

	sub, ok := got.SubgroupOf(id.AccountID("m-2"))
	s.True(ok)
	s.Equal(id.SubgroupID(1), sub)
}

func (s *PostgresStoreSuite) TestSavePersistsPeriodState() {
	ctx := context.Background()
	group := newTestGroup(s)
	s.Require().NoError(group.AddMember(id.AccountID("m-1"), 1))
	s.Require().NoError(s.store.Create(ctx, group))

	started := time.Now().UTC().Truncate(time.Second)
	group.CurrentPeriod = group.CurrentPeriod.Next()
	group.Periods[group.CurrentPeriod] = models.NewPeriod(group.CurrentPeriod, started)
	s.Require().NoError(s.store.Save(ctx, group))

	got, err := s.store.Get(ctx, group.ID)
	s.Require().NoError(err)
	period, ok := got.Current()
	s.Require().True(ok)
	s.Equal(group.CurrentPeriod, period.Index)
	s.True(period.StartedAt.Equal(started))
}

func (s *PostgresStoreSuite) TestSaveMissingGroup() {
	err := s.store.Save(context.Background(), newTestGroup(s))
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *PostgresStoreSuite) TestList() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newTestGroup(s)))
	s.Require().NoError(s.store.Create(ctx, newTestGroup(s)))

	groups, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(groups, 2)
}
