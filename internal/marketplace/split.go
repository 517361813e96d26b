package marketplace

import (
	"fmt"
	"math/big"

	"mintbay-api/internal/ledger"
)

var maxBps = big.NewInt(ledger.MaxBps)

// SplitProceeds divides a gross sale amount into royalty, marketplace and
// seller shares. Shares are computed with floor division over big integers so
// the product never overflows before the divide, and the seller share absorbs
// the rounding remainder: the three shares always sum exactly to totalPrice.
//
// The bps rates are each bounded to [0, MaxBps], but their sum is not: when it
// exceeds MaxBps the seller share would go negative, which is reported as
// ErrFeeConfiguration rather than clamped.
func SplitProceeds(totalPrice *big.Int, royaltyBps, marketFeeBps uint64) (royalty, market, seller *big.Int, err error) {
	if totalPrice == nil || totalPrice.Sign() < 0 {
		return nil, nil, nil, ErrInvalidPrice
	}
	if royaltyBps > ledger.MaxBps || marketFeeBps > ledger.MaxBps {
		return nil, nil, nil, fmt.Errorf("%w: bps rate above %d", ErrFeeConfiguration, ledger.MaxBps)
	}

	royalty = new(big.Int).Mul(totalPrice, new(big.Int).SetUint64(royaltyBps))
	royalty.Div(royalty, maxBps)

	market = new(big.Int).Mul(totalPrice, new(big.Int).SetUint64(marketFeeBps))
	market.Div(market, maxBps)

	seller = new(big.Int).Sub(totalPrice, royalty)
	seller.Sub(seller, market)
	if seller.Sign() < 0 {
		return nil, nil, nil, fmt.Errorf("%w: fee rates sum above %d bps", ErrFeeConfiguration, ledger.MaxBps)
	}

	return royalty, market, seller, nil
}
