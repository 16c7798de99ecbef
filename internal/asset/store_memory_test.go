package asset

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "tandapool/pkg/domain"
)

func TestInMemoryLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("mint then transfer moves value", func(t *testing.T) {
		ledger := NewInMemoryLedger()
		require.NoError(t, ledger.Mint(ctx, "alice", 100))
		require.NoError(t, ledger.TransferFrom(ctx, "alice", "bob", 40))

		alice, err := ledger.BalanceOf(ctx, "alice")
		require.NoError(t, err)
		bob, err := ledger.BalanceOf(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(60), alice)
		assert.Equal(t, int64(40), bob)
	})

	t.Run("overdraft is rejected and changes nothing", func(t *testing.T) {
		ledger := NewInMemoryLedger()
		require.NoError(t, ledger.Mint(ctx, "alice", 10))

		err := ledger.Transfer(ctx, "alice", "bob", 11)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		alice, err := ledger.BalanceOf(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(10), alice)
	})

	t.Run("negative amounts are rejected", func(t *testing.T) {
		ledger := NewInMemoryLedger()
		require.NoError(t, ledger.Mint(ctx, "alice", 10))
		assert.Error(t, ledger.Transfer(ctx, "alice", "bob", -1))
	})

	t.Run("unknown accounts read as zero", func(t *testing.T) {
		ledger := NewInMemoryLedger()
		balance, err := ledger.BalanceOf(ctx, "ghost")
		require.NoError(t, err)
		assert.Zero(t, balance)
	})
}

func TestInMemoryLedgerConservation(t *testing.T) {
	// Concurrent transfers shuffle value around but never create or
	// destroy it.
	ctx := context.Background()
	ledger := NewInMemoryLedger()
	accounts := []id.AccountID{"a", "b", "c", "d"}
	for _, a := range accounts {
		require.NoError(t, ledger.Mint(ctx, a, 1_000))
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := accounts[i%len(accounts)]
			to := accounts[(i+1)%len(accounts)]
			_ = ledger.Transfer(ctx, from, to, int64(i%7))
		}(i)
	}
	wg.Wait()

	var total int64
	for _, a := range accounts {
		balance, err := ledger.BalanceOf(ctx, a)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, balance, int64(0))
		total += balance
	}
	assert.Equal(t, int64(4_000), total)
}
