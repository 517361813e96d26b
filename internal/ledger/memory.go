package ledger

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Failure modes surfaced by the in-memory ledgers. Real deployments see the
// same conditions from the chain-backed collaborators.
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNotApproved           = errors.New("operator not approved")
	ErrInvalidAmount         = errors.New("amount must be positive")
)

// MemoryAssetLedger is an in-process AssetLedger with ERC-1155 style operator
// approvals. It backs the local entrypoint and the test suites.
type MemoryAssetLedger struct {
	mu        sync.Mutex
	balances  map[common.Address]map[string]*big.Int
	approvals map[common.Address]map[common.Address]bool
}

// NewMemoryAssetLedger creates an empty in-memory asset ledger.
func NewMemoryAssetLedger() *MemoryAssetLedger {
	return &MemoryAssetLedger{
		balances:  make(map[common.Address]map[string]*big.Int),
		approvals: make(map[common.Address]map[common.Address]bool),
	}
}

// Mint credits amount units of tokenID to the owner.
func (l *MemoryAssetLedger) Mint(owner common.Address, tokenID, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(owner, tokenID, amount)
}

// SetApprovalForAll lets the operator move any of the owner's tokens.
func (l *MemoryAssetLedger) SetApprovalForAll(owner, operator common.Address, approved bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.approvals[owner] == nil {
		l.approvals[owner] = make(map[common.Address]bool)
	}
	l.approvals[owner][operator] = approved
}

// BalanceOf returns the owner's balance of tokenID.
func (l *MemoryAssetLedger) BalanceOf(_ context.Context, owner common.Address, tokenID *big.Int) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(owner, tokenID)), nil
}

// Transfer moves amount units of tokenID from one owner to another.
func (l *MemoryAssetLedger) Transfer(_ context.Context, operator, from, to common.Address, tokenID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if operator != from && !l.approvals[from][operator] {
		return errors.Wrapf(ErrNotApproved, "operator %s for owner %s", operator.Hex(), from.Hex())
	}

	bal := l.balance(from, tokenID)
	if bal.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientBalance, "owner %s token %s has %s, needs %s",
			from.Hex(), tokenID.String(), bal.String(), amount.String())
	}

	bal.Sub(bal, amount)
	l.credit(to, tokenID, amount)
	return nil
}

func (l *MemoryAssetLedger) balance(owner common.Address, tokenID *big.Int) *big.Int {
	if l.balances[owner] == nil {
		l.balances[owner] = make(map[string]*big.Int)
	}
	b, ok := l.balances[owner][tokenID.String()]
	if !ok {
		b = new(big.Int)
		l.balances[owner][tokenID.String()] = b
	}
	return b
}

func (l *MemoryAssetLedger) credit(owner common.Address, tokenID, amount *big.Int) {
	l.balance(owner, tokenID).Add(l.balance(owner, tokenID), amount)
}

// MemoryCurrencyLedger is an in-process CurrencyLedger with ERC-20 allowance
// semantics.
type MemoryCurrencyLedger struct {
	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// NewMemoryCurrencyLedger creates an empty in-memory currency ledger.
func NewMemoryCurrencyLedger() *MemoryCurrencyLedger {
	return &MemoryCurrencyLedger{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits amount to the owner's balance.
func (l *MemoryCurrencyLedger) Mint(owner common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance(owner).Add(l.balance(owner), amount)
}

// Approve grants the spender an allowance over the owner's balance.
func (l *MemoryCurrencyLedger) Approve(owner, spender common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[common.Address]*big.Int)
	}
	l.allowances[owner][spender] = new(big.Int).Set(amount)
}

// BalanceOf returns the owner's currency balance.
func (l *MemoryCurrencyLedger) BalanceOf(_ context.Context, owner common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(owner)), nil
}

// Allowance returns the spender's remaining allowance over the owner's balance.
func (l *MemoryCurrencyLedger) Allowance(_ context.Context, owner, spender common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.allowance(owner, spender)), nil
}

// TransferFrom moves amount between accounts, consuming the spender's allowance.
func (l *MemoryCurrencyLedger) TransferFrom(_ context.Context, spender, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := l.allowance(from, spender)
	if spender != from && allowance.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientAllowance, "spender %s for owner %s has %s, needs %s",
			spender.Hex(), from.Hex(), allowance.String(), amount.String())
	}

	bal := l.balance(from)
	if bal.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientBalance, "owner %s has %s, needs %s",
			from.Hex(), bal.String(), amount.String())
	}

	if spender != from {
		allowance.Sub(allowance, amount)
	}
	bal.Sub(bal, amount)
	l.balance(to).Add(l.balance(to), amount)
	return nil
}

func (l *MemoryCurrencyLedger) balance(owner common.Address) *big.Int {
	b, ok := l.balances[owner]
	if !ok {
		b = new(big.Int)
		l.balances[owner] = b
	}
	return b
}

func (l *MemoryCurrencyLedger) allowance(owner, spender common.Address) *big.Int {
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[common.Address]*big.Int)
	}
	a, ok := l.allowances[owner][spender]
	if !ok {
		a = new(big.Int)
		l.allowances[owner][spender] = a
	}
	return a
}

// MemoryRegistry is an in-process Registry with a fixed royalty treasury and
// explicit role grants.
type MemoryRegistry struct {
	mu       sync.Mutex
	roles    map[string]map[common.Address]bool
	treasury common.Address
}

// NewMemoryRegistry creates a registry resolving every marketplace to the
// given royalty treasury.
func NewMemoryRegistry(treasury common.Address) *MemoryRegistry {
	return &MemoryRegistry{
		roles:    make(map[string]map[common.Address]bool),
		treasury: treasury,
	}
}

// GrantRole gives the address the named role.
func (r *MemoryRegistry) GrantRole(role string, addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.roles[role] == nil {
		r.roles[role] = make(map[common.Address]bool)
	}
	r.roles[role][addr] = true
}

// SetRoyaltyTreasury changes where royalty proceeds are routed.
func (r *MemoryRegistry) SetRoyaltyTreasury(treasury common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.treasury = treasury
}

// HasRole reports whether the address carries the named role.
func (r *MemoryRegistry) HasRole(_ context.Context, role string, addr common.Address) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roles[role][addr], nil
}

// RoyaltyTreasury resolves the current royalty treasury.
func (r *MemoryRegistry) RoyaltyTreasury(_ context.Context, _ common.Address) (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.treasury, nil
}
