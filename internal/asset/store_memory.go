package asset

import (
	"context"
	"fmt"
	"sync"

	id "tandapool/pkg/domain"
)

// InMemoryLedger keeps balances in process. It favors clarity over
// performance and is the default for tests and single-node runs.
type InMemoryLedger struct {
	mu       sync.RWMutex
	balances map[id.AccountID]int64
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{balances: make(map[id.AccountID]int64)}
}

func (l *InMemoryLedger) TransferFrom(_ context.Context, payer, to id.AccountID, amount int64) error {
	return l.move(payer, to, amount)
}

func (l *InMemoryLedger) Transfer(_ context.Context, from, to id.AccountID, amount int64) error {
	return l.move(from, to, amount)
}

func (l *InMemoryLedger) BalanceOf(_ context.Context, account id.AccountID) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account], nil
}

func (l *InMemoryLedger) Mint(_ context.Context, to id.AccountID, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("mint amount must be non-negative")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] += amount
	return nil
}

func (l *InMemoryLedger) move(from, to id.AccountID, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("transfer amount must be non-negative")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return fmt.Errorf("transfer %d from %s: %w", amount, from, ErrInsufficientFunds)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
