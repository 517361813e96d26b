package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownMethod is returned for relayed payloads naming a method the
// engine does not expose.
var ErrUnknownMethod = errors.New("unknown relay method")

// RelayCall is the payload format for meta-transactions targeting the engine.
// The relay authenticates the signer and hands it to Call as the caller, so a
// relayed buy settles for the signer, not for the relayer.
type RelayCall struct {
	Method string     `json:"method"`
	Buy    *RelayBuy  `json:"buy,omitempty"`
	List   *RelayList `json:"list,omitempty"`
}

// RelayBuy carries the arguments of a relayed purchase.
type RelayBuy struct {
	ListingID uint64 `json:"listing_id"`
	Quantity  uint64 `json:"quantity"`
}

// RelayList carries the arguments of a relayed listing creation.
type RelayList struct {
	AssetContract  common.Address `json:"asset_contract"`
	TokenID        *big.Int       `json:"token_id"`
	Currency       common.Address `json:"currency"`
	PricePerToken  *big.Int       `json:"price_per_token"`
	Quantity       uint64         `json:"quantity"`
	TokensPerBuyer uint64         `json:"tokens_per_buyer"`
	StartTime      uint64         `json:"start_time"`
	EndTime        uint64         `json:"end_time"`
}

// RelayListResult is returned from a relayed listing creation.
type RelayListResult struct {
	ListingID uint64 `json:"listing_id"`
}

// Call dispatches a relayed payload with the authenticated signer as the
// effective caller. It satisfies the relay's target contract.
func (e *Engine) Call(ctx context.Context, caller common.Address, payload []byte) ([]byte, error) {
	var call RelayCall
	if err := json.Unmarshal(payload, &call); err != nil {
		return nil, fmt.Errorf("decode relay payload: %w", err)
	}

	switch call.Method {
	case "buy":
		if call.Buy == nil {
			return nil, fmt.Errorf("%w: buy arguments missing", ErrUnknownMethod)
		}
		receipt, err := e.Buy(ctx, caller, call.Buy.ListingID, call.Buy.Quantity)
		if err != nil {
			return nil, err
		}
		return json.Marshal(receipt)

	case "list":
		if call.List == nil {
			return nil, fmt.Errorf("%w: list arguments missing", ErrUnknownMethod)
		}
		id, err := e.CreateListing(ctx, caller, CreateListingParams{
			AssetContract:  call.List.AssetContract,
			TokenID:        call.List.TokenID,
			Currency:       call.List.Currency,
			PricePerToken:  call.List.PricePerToken,
			Quantity:       call.List.Quantity,
			TokensPerBuyer: call.List.TokensPerBuyer,
			StartTime:      call.List.StartTime,
			EndTime:        call.List.EndTime,
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(RelayListResult{ListingID: id})

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, call.Method)
	}
}
