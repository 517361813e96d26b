package marketplace

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mintbay-api/internal/ledger"
	"mintbay-api/internal/logger"
)

// Clock supplies the sale-window time base. Injected so boundary behavior is
// deterministic in tests; production wraps the system clock.
type Clock interface {
	Now() uint64
}

// SystemClock reads the current unix time in seconds.
type SystemClock struct{}

// Now returns the current unix time.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

type purchaseKey struct {
	listingID uint64
	buyer     common.Address
}

// Config holds the engine's immutable deployment identity and its initial fee
// rates.
type Config struct {
	// Operator is the marketplace's own address, used as the spender on
	// currency pulls and the operator on asset transfers
	Operator common.Address
	// PlatformTreasury receives the marketplace fee share of every sale
	PlatformTreasury common.Address
	RoyaltyBps       uint64
	MarketFeeBps     uint64
}

// Receipt describes a settled purchase.
type Receipt struct {
	ListingID       uint64         `json:"listing_id"`
	Buyer           common.Address `json:"buyer"`
	Quantity        uint64         `json:"quantity"`
	TotalPrice      *big.Int       `json:"total_price"`
	RoyaltyShare    *big.Int       `json:"royalty_share"`
	MarketShare     *big.Int       `json:"market_share"`
	SellerShare     *big.Int       `json:"seller_share"`
	RoyaltyTreasury common.Address `json:"royalty_treasury"`
	SoldAt          uint64         `json:"sold_at"`
}

// Engine owns listings, the per-buyer purchase ledger and the fee rates, and
// orchestrates the purchase protocol against the external ledgers. All
// bookkeeping is committed under the engine lock before any external transfer
// is invoked, and the lock is never held across an external call.
type Engine struct {
	mu            sync.Mutex
	operator      common.Address
	platform      common.Address
	royaltyBps    uint64
	marketFeeBps  uint64
	nextListingID uint64
	listings      map[uint64]*Listing
	purchased     map[purchaseKey]uint64

	assets   ledger.AssetLedger
	currency ledger.CurrencyLedger
	registry ledger.Registry
	clock    Clock
	events   *EventManager
	logger   *zap.Logger
}

// NewEngine creates a marketplace engine settling against the given ledgers.
func NewEngine(cfg Config, assets ledger.AssetLedger, currency ledger.CurrencyLedger, registry ledger.Registry, clock Clock) *Engine {
	log := logger.Log
	if log == nil {
		log = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &Engine{
		operator:     cfg.Operator,
		platform:     cfg.PlatformTreasury,
		royaltyBps:   cfg.RoyaltyBps,
		marketFeeBps: cfg.MarketFeeBps,
		listings:     make(map[uint64]*Listing),
		purchased:    make(map[purchaseKey]uint64),
		assets:       assets,
		currency:     currency,
		registry:     registry,
		clock:        clock,
		events:       NewEventManager(),
		logger:       log,
	}
}

// Address returns the marketplace's operator address.
func (e *Engine) Address() common.Address {
	return e.operator
}

// Events exposes the sale event manager for listener registration.
func (e *Engine) Events() *EventManager {
	return e.events
}

// CreateListingParams are the seller-supplied listing fields.
type CreateListingParams struct {
	AssetContract  common.Address
	TokenID        *big.Int
	Currency       common.Address
	PricePerToken  *big.Int
	Quantity       uint64
	TokensPerBuyer uint64
	StartTime      uint64
	EndTime        uint64
}

// CreateListing validates the parameters and records a new listing under a
// freshly allocated id, strictly greater than every id issued before. The
// seller's escrow authorization is checked at purchase time, not here.
func (e *Engine) CreateListing(ctx context.Context, seller common.Address, p CreateListingParams) (uint64, error) {
	if p.Quantity == 0 {
		return 0, fmt.Errorf("%w: listed quantity", ErrInvalidQuantity)
	}
	if p.TokensPerBuyer == 0 {
		return 0, fmt.Errorf("%w: tokens per buyer", ErrInvalidQuantity)
	}
	if p.StartTime > p.EndTime {
		return 0, ErrInvalidWindow
	}
	if p.PricePerToken == nil || p.PricePerToken.Sign() < 0 {
		return 0, ErrInvalidPrice
	}
	tokenID := p.TokenID
	if tokenID == nil {
		tokenID = new(big.Int)
	}

	e.mu.Lock()
	e.nextListingID++
	id := e.nextListingID
	e.listings[id] = &Listing{
		ID:             id,
		AssetContract:  p.AssetContract,
		TokenID:        new(big.Int).Set(tokenID),
		Seller:         seller,
		Currency:       p.Currency,
		PricePerToken:  new(big.Int).Set(p.PricePerToken),
		Quantity:       p.Quantity,
		TokensPerBuyer: p.TokensPerBuyer,
		StartTime:      p.StartTime,
		EndTime:        p.EndTime,
	}
	e.mu.Unlock()

	e.logger.Info("listing created",
		zap.Uint64("listing_id", id),
		zap.String("seller", seller.Hex()),
		zap.String("token_id", tokenID.String()),
		zap.Uint64("quantity", p.Quantity),
	)
	return id, nil
}

// GetListing returns a snapshot of the listing.
func (e *Engine) GetListing(listingID uint64) (Listing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.listings[listingID]
	if !ok {
		return Listing{}, ErrListingNotFound
	}
	return l.snapshot(), nil
}

// ListListings returns snapshots of every listing, ordered by id.
func (e *Engine) ListListings() []Listing {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Listing, 0, len(e.listings))
	for _, l := range e.listings {
		out = append(out, l.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BoughtFromListing returns how many units the buyer has cumulatively
// purchased from the listing.
func (e *Engine) BoughtFromListing(listingID uint64, buyer common.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.listings[listingID]; !ok {
		return 0, ErrListingNotFound
	}
	return e.purchased[purchaseKey{listingID, buyer}], nil
}

// FeeRates returns the current royalty and marketplace fee rates.
func (e *Engine) FeeRates() (royaltyBps, marketFeeBps uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.royaltyBps, e.marketFeeBps
}

// SetRoyaltyBps updates the royalty rate. Admin only.
func (e *Engine) SetRoyaltyBps(ctx context.Context, caller common.Address, bps uint64) error {
	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if bps > ledger.MaxBps {
		return fmt.Errorf("%w: royalty rate %d above %d bps", ErrFeeConfiguration, bps, ledger.MaxBps)
	}

	e.mu.Lock()
	e.royaltyBps = bps
	e.mu.Unlock()

	e.logger.Info("royalty rate updated", zap.Uint64("royalty_bps", bps), zap.String("caller", caller.Hex()))
	return nil
}

// SetMarketFeeBps updates the marketplace fee rate. Admin only.
func (e *Engine) SetMarketFeeBps(ctx context.Context, caller common.Address, bps uint64) error {
	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if bps > ledger.MaxBps {
		return fmt.Errorf("%w: market fee rate %d above %d bps", ErrFeeConfiguration, bps, ledger.MaxBps)
	}

	e.mu.Lock()
	e.marketFeeBps = bps
	e.mu.Unlock()

	e.logger.Info("market fee rate updated", zap.Uint64("market_fee_bps", bps), zap.String("caller", caller.Hex()))
	return nil
}

func (e *Engine) requireAdmin(ctx context.Context, caller common.Address) error {
	ok, err := e.registry.HasRole(ctx, ledger.RoleAdmin, caller)
	if err != nil {
		return fmt.Errorf("registry role check: %w", err)
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}

// Buy purchases quantity units against the listing on behalf of the buyer.
//
// Validation happens under the engine lock, bookkeeping (quantity decrement,
// purchase-ledger increment) commits before any external transfer, and a
// failed transfer rolls everything back so no partial effect survives. The
// currency settles through the marketplace account: the full price is pulled
// from the buyer first, the asset is delivered, then the pulled funds are
// distributed to the royalty treasury, the platform treasury and the seller.
func (e *Engine) Buy(ctx context.Context, buyer common.Address, listingID, quantity uint64) (*Receipt, error) {
	if quantity == 0 {
		return nil, ErrInvalidQuantity
	}

	e.mu.Lock()
	l, ok := e.listings[listingID]
	if !ok {
		e.mu.Unlock()
		return nil, ErrListingNotFound
	}

	now := e.clock.Now()
	if now < l.StartTime || now > l.EndTime {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: time %d outside [%d, %d]", ErrSaleWindowClosed, now, l.StartTime, l.EndTime)
	}
	if quantity > l.Quantity {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: requested %d, remaining %d", ErrInsufficientStock, quantity, l.Quantity)
	}

	key := purchaseKey{listingID, buyer}
	bought := e.purchased[key]
	if quantity > l.TokensPerBuyer-bought {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: bought %d, requested %d, cap %d", ErrBuyLimitExceeded, bought, quantity, l.TokensPerBuyer)
	}

	totalPrice := new(big.Int).Mul(l.PricePerToken, new(big.Int).SetUint64(quantity))
	royalty, market, sellerShare, err := SplitProceeds(totalPrice, e.royaltyBps, e.marketFeeBps)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	// Commit bookkeeping before touching any external ledger so a reentrant
	// call observes post-purchase state.
	l.Quantity -= quantity
	e.purchased[key] = bought + quantity
	seller := l.Seller
	tokenID := new(big.Int).Set(l.TokenID)
	assetContract := l.AssetContract
	snapshot := l.snapshot()
	e.mu.Unlock()

	// The rollback undoes only this purchase's increments. Another purchase
	// by the same buyer can settle while this one is out on the external
	// ledgers, so restoring an absolute snapshot would erase its units.
	rollback := func() {
		e.mu.Lock()
		l.Quantity += quantity
		if remaining := e.purchased[key] - quantity; remaining == 0 {
			delete(e.purchased, key)
		} else {
			e.purchased[key] = remaining
		}
		e.mu.Unlock()
	}

	// Royalty treasury is resolved on every sale, never cached.
	treasury, err := e.registry.RoyaltyTreasury(ctx, e.operator)
	if err != nil {
		rollback()
		return nil, fmt.Errorf("resolve royalty treasury: %w", err)
	}

	if err := e.currency.TransferFrom(ctx, e.operator, buyer, e.operator, totalPrice); err != nil {
		rollback()
		return nil, fmt.Errorf("%w: %v", ErrCurrencyTransferFailed, err)
	}

	if err := e.assets.Transfer(ctx, e.operator, seller, buyer, tokenID, new(big.Int).SetUint64(quantity)); err != nil {
		if refundErr := e.currency.TransferFrom(ctx, e.operator, e.operator, buyer, totalPrice); refundErr != nil {
			e.logger.Error("refund after failed asset transfer did not settle",
				zap.Uint64("listing_id", listingID),
				zap.String("buyer", buyer.Hex()),
				zap.Error(refundErr),
			)
		}
		rollback()
		return nil, fmt.Errorf("%w: %v", ErrAssetTransferFailed, err)
	}

	if err := e.distribute(ctx, treasury, seller, royalty, market, sellerShare); err != nil {
		// The funds are already in marketplace custody, so a distribution
		// failure means the currency collaborator broke its own contract.
		e.logger.Error("sale proceeds distribution failed",
			zap.Uint64("listing_id", listingID),
			zap.String("buyer", buyer.Hex()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrCurrencyTransferFailed, err)
	}

	sale := NewSale{
		EventID:       uuid.New(),
		AssetContract: assetContract,
		Seller:        seller,
		ListingID:     listingID,
		Buyer:         buyer,
		Quantity:      quantity,
		Listing:       snapshot,
	}
	e.events.EmitSale(sale)

	e.logger.Info("purchase settled",
		zap.Uint64("listing_id", listingID),
		zap.String("buyer", buyer.Hex()),
		zap.Uint64("quantity", quantity),
		zap.String("total_price", totalPrice.String()),
		zap.String("royalty_treasury", treasury.Hex()),
	)

	return &Receipt{
		ListingID:       listingID,
		Buyer:           buyer,
		Quantity:        quantity,
		TotalPrice:      totalPrice,
		RoyaltyShare:    royalty,
		MarketShare:     market,
		SellerShare:     sellerShare,
		RoyaltyTreasury: treasury,
		SoldAt:          now,
	}, nil
}

// distribute pays the three shares out of marketplace custody. Zero shares
// are skipped rather than sent as empty transfers.
func (e *Engine) distribute(ctx context.Context, treasury, seller common.Address, royalty, market, sellerShare *big.Int) error {
	payouts := []struct {
		to     common.Address
		amount *big.Int
	}{
		{treasury, royalty},
		{e.platform, market},
		{seller, sellerShare},
	}
	for _, p := range payouts {
		if p.amount.Sign() == 0 {
			continue
		}
		if err := e.currency.TransferFrom(ctx, e.operator, e.operator, p.to, p.amount); err != nil {
			return fmt.Errorf("payout to %s: %w", p.to.Hex(), err)
		}
	}
	return nil
}
