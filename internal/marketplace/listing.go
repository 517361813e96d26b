package marketplace

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ListingStatus is derived from a listing's quantity and sale window; it is
// never stored.
type ListingStatus string

const (
	StatusNotYetOpen ListingStatus = "not_yet_open"
	StatusActive     ListingStatus = "active"
	StatusSoldOut    ListingStatus = "sold_out"
	StatusExpired    ListingStatus = "expired"
)

// Listing is a seller's standing offer: a bounded quantity of one token id at
// a fixed price, sellable inside [StartTime, EndTime]. Only Quantity changes
// after creation, and it only decreases.
type Listing struct {
	ID            uint64         `json:"id"`
	AssetContract common.Address `json:"asset_contract"`
	TokenID       *big.Int       `json:"token_id"`
	Seller        common.Address `json:"seller"`
	Currency      common.Address `json:"currency"`
	// PricePerToken is denominated in the currency's smallest unit
	PricePerToken  *big.Int `json:"price_per_token"`
	Quantity       uint64   `json:"quantity"`
	TokensPerBuyer uint64   `json:"tokens_per_buyer"`
	StartTime      uint64   `json:"start_time"`
	EndTime        uint64   `json:"end_time"`
}

// Status derives the listing state at the given time.
func (l *Listing) Status(now uint64) ListingStatus {
	switch {
	case l.Quantity == 0:
		return StatusSoldOut
	case now < l.StartTime:
		return StatusNotYetOpen
	case now > l.EndTime:
		return StatusExpired
	default:
		return StatusActive
	}
}

// snapshot returns a deep copy safe to hand out after the engine lock is
// released.
func (l *Listing) snapshot() Listing {
	cp := *l
	cp.TokenID = new(big.Int).Set(l.TokenID)
	cp.PricePerToken = new(big.Int).Set(l.PricePerToken)
	return cp
}
