// Package asset provides the value-transfer collaborator the pool core moves
// funds through. The core only sees the Ledger interface; approval semantics
// and custody belong to the asset itself.
package asset

import (
	"context"
	"errors"

	id "tandapool/pkg/domain"
)

// Infrastructure sentinels. Services translate these into coded domain
// errors at the boundary.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownAccount    = errors.New("unknown account")
)

// Ledger is the narrow value-transfer capability the core consumes. Every
// call either fully succeeds or leaves all balances untouched.
type Ledger interface {
	// TransferFrom pulls amount from payer into to. The payer's prior
	// authorization is the asset's concern, not the core's.
	TransferFrom(ctx context.Context, payer, to id.AccountID, amount int64) error
	// Transfer pushes amount between accounts the caller controls, such as
	// a group's pool account or the escrow account.
	Transfer(ctx context.Context, from, to id.AccountID, amount int64) error
	// BalanceOf reports the current balance of an account. Unknown
	// accounts report zero.
	BalanceOf(ctx context.Context, account id.AccountID) (int64, error)
	// Mint creates new units. Privileged; used by bootstrap and test
	// tooling, never by steady-state pool logic.
	Mint(ctx context.Context, to id.AccountID, amount int64) error
}
