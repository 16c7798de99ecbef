package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tandapool/internal/group/models"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/testutil"
)

func newGroup(t *testing.T, members int) *models.Group {
	t.Helper()
	g, err := models.NewGroup(id.AccountID("secretary"), 3, 500, time.Now())
	require.NoError(t, err)
	for i := 0; i < members; i++ {
		account := id.AccountID(string(rune('a'+i%26)) + string(rune('a'+i/26)))
		sub := id.SubgroupID(i/5 + 1)
		require.NoError(t, g.AddMember(account, sub))
	}
	return g
}

func TestNewGroupValidation(t *testing.T) {
	now := time.Now()

	_, err := models.NewGroup("", 3, 500, now)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))

	_, err = models.NewGroup("secretary", 0, 500, now)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))

	_, err = models.NewGroup("secretary", 3, 0, now)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}

func TestPremiumSizing(t *testing.T) {
	testutil.Given(t, "a fully subscribed fifty member group underwriting three 500 payouts", func(t *testing.T) {
		g := newGroup(t, 50)

		testutil.Then(t, "the premium is the rounded-up per-member share", func(t *testing.T) {
			assert.Equal(t, int64(30), g.Premium())
		})

		testutil.Then(t, "a full subgroup of five is surcharged a quarter premium", func(t *testing.T) {
			assert.Equal(t, int64(7), g.Overpayment(5))
		})

		testutil.Then(t, "a degenerate subgroup of one owes a full extra premium", func(t *testing.T) {
			assert.Equal(t, int64(30), g.Overpayment(1))
			assert.Equal(t, int64(30), g.Overpayment(0))
		})
	})

	t.Run("premium rounds up so the pool always covers the target", func(t *testing.T) {
		g := newGroup(t, 7) // 1500/7 = 214.28...
		assert.Equal(t, int64(215), g.Premium())
		assert.GreaterOrEqual(t, g.Premium()*7, int64(1500))
	})

	t.Run("empty group has no premium", func(t *testing.T) {
		g := newGroup(t, 0)
		assert.Zero(t, g.Premium())
	})
}

func TestSubperiodDerivation(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := models.NewPeriod(1, start)

	day := 24 * time.Hour
	assert.Equal(t, models.SubperiodPre, p.SubperiodAt(start))
	assert.Equal(t, models.SubperiodPre, p.SubperiodAt(start.Add(3*day-time.Second)))
	assert.Equal(t, models.SubperiodActive, p.SubperiodAt(start.Add(3*day)))
	assert.Equal(t, models.SubperiodActive, p.SubperiodAt(start.Add(27*day-time.Second)))
	assert.Equal(t, models.SubperiodPost, p.SubperiodAt(start.Add(27*day)))

	// POST holds past the nominal period length until remittance.
	assert.Equal(t, models.SubperiodPost, p.SubperiodAt(start.Add(33*day)))

	assert.False(t, p.RemittableAt(start.Add(30*day-time.Second)))
	assert.True(t, p.RemittableAt(start.Add(30*day)))

	p.Remitted = true
	assert.Equal(t, models.SubperiodEnded, p.SubperiodAt(start.Add(31*day)))
	assert.False(t, p.RemittableAt(start.Add(31*day)))
}

func TestSubperiodIsMonotonic(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := models.NewPeriod(1, start)

	prev := p.SubperiodAt(start)
	for h := 1; h <= 24*40; h++ {
		cur := p.SubperiodAt(start.Add(time.Duration(h) * time.Hour))
		assert.GreaterOrEqual(t, int(cur), int(prev))
		prev = cur
	}
}

func TestGroupSubperiod(t *testing.T) {
	g := newGroup(t, 5)
	now := time.Now()

	assert.Equal(t, models.SubperiodLobby, g.SubperiodAt(now))
	assert.True(t, g.InLobby(now))

	g.CurrentPeriod = 1
	g.Periods[1] = models.NewPeriod(1, now)
	assert.Equal(t, models.SubperiodPre, g.SubperiodAt(now))
	assert.False(t, g.InLobby(now))
}

func TestMembershipKeepsSubgroupCountsConsistent(t *testing.T) {
	g := newGroup(t, 0)

	require.NoError(t, g.AddMember("m1", 1))
	require.NoError(t, g.AddMember("m2", 1))
	require.NoError(t, g.AddMember("m3", 2))
	assert.Equal(t, 3, g.MemberCount())
	assert.Equal(t, 2, g.SubgroupSizes[1])
	assert.Equal(t, 1, g.SubgroupSizes[2])

	err := g.AddMember("m1", 2)
	assert.Equal(t, dErrors.CodeStateViolation, dErrors.CodeOf(err))

	err = g.AddMember("m4", 0)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))

	require.NoError(t, g.ChangeSubgroup("m3", 1))
	assert.Equal(t, 3, g.SubgroupSizes[1])
	_, tracked := g.SubgroupSizes[2]
	assert.False(t, tracked, "emptied subgroups are dropped, not kept at zero")

	require.NoError(t, g.RemoveMember("m2"))
	assert.Equal(t, 2, g.MemberCount())
	assert.Equal(t, 2, g.SubgroupSizes[1])

	err = g.RemoveMember("ghost")
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestParticipantIndexStaysDense(t *testing.T) {
	p := models.NewPeriod(1, time.Now())
	p.Payments = []models.Payment{
		{Account: "m1", Subgroup: 1},
		{Account: "m2", Subgroup: 1},
		{Account: "m3", Subgroup: 2},
	}

	idx, ok := p.ParticipantIndex("m2")
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	// Defection invalidates the index without renumbering later payers.
	payment, ok := p.PaymentOf("m2")
	require.True(t, ok)
	payment.Defected = true

	_, ok = p.ParticipantIndex("m2")
	assert.False(t, ok)

	idx, ok = p.ParticipantIndex("m3")
	require.True(t, ok)
	assert.Equal(t, 3, idx)
	assert.Equal(t, 2, p.ParticipantCount())
}

func TestToxicityThreshold(t *testing.T) {
	p := models.NewPeriod(1, time.Now())

	assert.False(t, p.IsToxic(1))
	p.Defections[1]++
	assert.False(t, p.IsToxic(1), "one defection is tolerated")
	p.Defections[1]++
	assert.True(t, p.IsToxic(1), "a second defection poisons the subgroup")
}

func TestLiveSubgroupSize(t *testing.T) {
	g := newGroup(t, 10) // subgroups 1 and 2, five members each
	p := models.NewPeriod(1, time.Now())

	assert.Equal(t, 5, g.LiveSubgroupSize(p, 1))
	p.Defections[1] = 2
	assert.Equal(t, 3, g.LiveSubgroupSize(p, 1))
	p.Defections[1] = 7
	assert.Equal(t, 0, g.LiveSubgroupSize(p, 1))
}

func TestControllerRights(t *testing.T) {
	registry := id.AccountID("registry")

	sec := models.SecretaryController("alice")
	assert.True(t, sec.Holds("alice", registry))
	assert.False(t, sec.Holds("bob", registry))
	assert.False(t, sec.Holds(registry, registry))
	assert.Equal(t, id.AccountID("alice"), sec.Payee(registry))

	reg := models.RegistryController()
	assert.True(t, reg.Holds(registry, registry))
	assert.False(t, reg.Holds("alice", registry))
	assert.Equal(t, registry, reg.Payee(registry))
}

func TestLoanStateInvariant(t *testing.T) {
	assert.NoError(t, models.LoanState{}.Check())
	assert.NoError(t, models.LoanState{Loaned: true, Debt: 2220, MonthsRemaining: 6, Installment: 370}.Check())

	assert.Error(t, models.LoanState{Loaned: true}.Check())
	assert.Error(t, models.LoanState{Debt: 100, MonthsRemaining: 1, Installment: 100}.Check())
}

func TestCloneIsDeep(t *testing.T) {
	g := newGroup(t, 5)
	g.CurrentPeriod = 1
	g.Periods[1] = models.NewPeriod(1, time.Now())
	g.Periods[1].Payments = []models.Payment{{Account: "m1", Subgroup: 1, Premium: 30}}

	clone := g.Clone()
	clone.Periods[1].Payments[0].Defected = true
	clone.Periods[1].Defections[1] = 5
	require.NoError(t, clone.AddMember("extra", 3))

	assert.False(t, g.Periods[1].Payments[0].Defected)
	assert.Zero(t, g.Periods[1].DefectionCount(1))
	assert.Equal(t, 5, g.MemberCount())
}
