package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tandapool/internal/group/models"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

func newTestGroup(t *testing.T) *models.Group {
	t.Helper()
	group, err := models.NewGroup(id.AccountID("sec-1"), 3, 500, time.Now())
	require.NoError(t, err)
	return group
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Get for missing group returns not found", func(t *testing.T) {
		store := New()
		_, err := store.Get(ctx, id.NewGroupID())
		assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	})

	t.Run("Create then Get returns the group", func(t *testing.T) {
		store := New()
		group := newTestGroup(t)
		require.NoError(t, store.Create(ctx, group))

		got, err := store.Get(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, group.ID, got.ID)
		assert.Equal(t, group.ClaimVolume, got.ClaimVolume)
	})

	t.Run("Create twice is a state violation", func(t *testing.T) {
		store := New()
		group := newTestGroup(t)
		require.NoError(t, store.Create(ctx, group))
		err := store.Create(ctx, group)
		assert.Equal(t, dErrors.CodeStateViolation, dErrors.CodeOf(err))
	})

	t.Run("Save without Create returns not found", func(t *testing.T) {
		store := New()
		err := store.Save(ctx, newTestGroup(t))
		assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	})

	t.Run("Get hands out a private copy", func(t *testing.T) {
		store := New()
		group := newTestGroup(t)
		require.NoError(t, store.Create(ctx, group))

		first, err := store.Get(ctx, group.ID)
		require.NoError(t, err)
		require.NoError(t, first.AddMember(id.AccountID("m-1"), 1))

		second, err := store.Get(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, second.MemberCount(), "mutating a returned copy must not leak into the store")
	})

	t.Run("Save persists membership changes atomically", func(t *testing.T) {
		store := New()
		group := newTestGroup(t)
		require.NoError(t, store.Create(ctx, group))

		copy, err := store.Get(ctx, group.ID)
		require.NoError(t, err)
		require.NoError(t, copy.AddMember(id.AccountID("m-1"), 1))
		require.NoError(t, store.Save(ctx, copy))

		got, err := store.Get(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.MemberCount())
	})

	t.Run("List returns all groups", func(t *testing.T) {
		store := New()
		require.NoError(t, store.Create(ctx, newTestGroup(t)))
		require.NoError(t, store.Create(ctx, newTestGroup(t)))

		groups, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, groups, 2)
	})
}
