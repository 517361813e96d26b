package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MaxBps is the basis-point denominator exposed by the registry: 10000 bps = 100%.
const MaxBps = 10000

// Role names recognised by the registry.
const (
	RoleAdmin  = "admin"
	RoleLister = "lister"
)

// AssetLedger is the semi-fungible asset collaborator. Transfers move units of
// a token id between owners and fail when the sender lacks balance or the
// marketplace lacks operator approval.
type AssetLedger interface {
	// BalanceOf returns how many units of tokenID the owner holds.
	BalanceOf(ctx context.Context, owner common.Address, tokenID *big.Int) (*big.Int, error)

	// Transfer moves amount units of tokenID from one owner to another.
	// The operator must have been approved by the owner unless it is the
	// owner itself.
	Transfer(ctx context.Context, operator, from, to common.Address, tokenID, amount *big.Int) error
}

// CurrencyLedger is the settlement-currency collaborator. It follows ERC-20
// allowance semantics: TransferFrom only succeeds against a prior approval.
type CurrencyLedger interface {
	// BalanceOf returns the currency balance of the owner.
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)

	// Allowance returns how much the spender may still move out of the
	// owner's balance.
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)

	// TransferFrom moves amount from one account to another, consuming the
	// spender's allowance.
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *big.Int) error
}

// Registry is the access-control and royalty-policy collaborator. The royalty
// treasury is resolved through it on every sale rather than cached, so policy
// changes take effect immediately.
type Registry interface {
	// HasRole reports whether the address carries the named role.
	HasRole(ctx context.Context, role string, addr common.Address) (bool, error)

	// RoyaltyTreasury resolves the address that receives royalty proceeds
	// for sales settled by the given marketplace.
	RoyaltyTreasury(ctx context.Context, marketplace common.Address) (common.Address, error)
}
