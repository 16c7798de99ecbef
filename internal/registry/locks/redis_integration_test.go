//go:build integration

package locks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tandapool/internal/registry/locks"
	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
	"tandapool/pkg/testutil/containers"
)

func TestRedisLock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	lock := locks.NewRedis(rc.Client)
	ctx := context.Background()
	groupID := id.NewGroupID()

	t.Run("second acquire is rejected while held", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		release, err := lock.Acquire(ctx, groupID)
		require.NoError(t, err)

		_, err = lock.Acquire(ctx, groupID)
		assert.Equal(t, dErrors.CodeStateViolation, dErrors.CodeOf(err))

		release()

		release2, err := lock.Acquire(ctx, groupID)
		require.NoError(t, err)
		release2()
	})

	t.Run("locks are scoped per group", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		release, err := lock.Acquire(ctx, groupID)
		require.NoError(t, err)
		defer release()

		other, err := lock.Acquire(ctx, id.NewGroupID())
		require.NoError(t, err)
		other()
	})
}
