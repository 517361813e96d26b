package marketplace

import "errors"

// Purchase and configuration failures. Every failed operation leaves engine
// state and ledger balances exactly as they were before the call.
var (
	// ErrInvalidQuantity is returned for zero listed or requested quantities
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrInvalidWindow is returned when a listing's sale window ends before it starts
	ErrInvalidWindow = errors.New("sale window end precedes start")
	// ErrInvalidPrice is returned for a missing or negative price
	ErrInvalidPrice = errors.New("price per token must be non-negative")
	// ErrListingNotFound is returned when the listing id was never issued
	ErrListingNotFound = errors.New("listing not found")
	// ErrSaleWindowClosed is returned when the current time is outside the listing window
	ErrSaleWindowClosed = errors.New("sale window closed")
	// ErrInsufficientStock is returned when the request exceeds remaining quantity
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrBuyLimitExceeded is returned when the cumulative purchase would exceed the per-buyer cap
	ErrBuyLimitExceeded = errors.New("buy limit exceeded")
	// ErrCurrencyTransferFailed wraps failures surfaced by the currency ledger
	ErrCurrencyTransferFailed = errors.New("currency transfer failed")
	// ErrAssetTransferFailed wraps failures surfaced by the asset ledger
	ErrAssetTransferFailed = errors.New("asset transfer failed")
	// ErrFeeConfiguration is returned when fee rates are out of range or their
	// sum would make the seller share negative
	ErrFeeConfiguration = errors.New("invalid fee configuration")
	// ErrNotAuthorized is returned when the caller lacks the admin role
	ErrNotAuthorized = errors.New("caller not authorized")
)
