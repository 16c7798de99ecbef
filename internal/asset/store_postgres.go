package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "tandapool/pkg/domain"
)

// Schema for the postgres ledger. Applied by deployment tooling; kept here
// so the store and its migrations stay in one place.
const Schema = `
CREATE TABLE IF NOT EXISTS asset_balances (
    account    TEXT PRIMARY KEY,
    balance    BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresLedger persists balances in PostgreSQL. Transfers run inside a
// single transaction so a shortfall aborts both legs.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

func (l *PostgresLedger) TransferFrom(ctx context.Context, payer, to id.AccountID, amount int64) error {
	return l.move(ctx, payer, to, amount)
}

func (l *PostgresLedger) Transfer(ctx context.Context, from, to id.AccountID, amount int64) error {
	return l.move(ctx, from, to, amount)
}

func (l *PostgresLedger) BalanceOf(ctx context.Context, account id.AccountID) (int64, error) {
	var balance int64
	err := l.pool.QueryRow(ctx,
		`SELECT balance FROM asset_balances WHERE account = $1`,
		account.String(),
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance of %s: %w", account, err)
	}
	return balance, nil
}

func (l *PostgresLedger) Mint(ctx context.Context, to id.AccountID, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("mint amount must be non-negative")
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO asset_balances (account, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account)
		DO UPDATE SET balance = asset_balances.balance + EXCLUDED.balance, updated_at = now()`,
		to.String(), amount,
	)
	if err != nil {
		return fmt.Errorf("mint %d to %s: %w", amount, to, err)
	}
	return nil
}

func (l *PostgresLedger) move(ctx context.Context, from, to id.AccountID, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("transfer amount must be non-negative")
	}
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE asset_balances
		SET balance = balance - $1, updated_at = now()
		WHERE account = $2 AND balance >= $1`,
		amount, from.String(),
	)
	if err != nil {
		return fmt.Errorf("debit %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transfer %d from %s: %w", amount, from, ErrInsufficientFunds)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO asset_balances (account, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account)
		DO UPDATE SET balance = asset_balances.balance + EXCLUDED.balance, updated_at = now()`,
		to.String(), amount,
	)
	if err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}

	return tx.Commit(ctx)
}
